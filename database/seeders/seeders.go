package seeders

import (
	"log"
	"time"

	"sata_school_go/database"
	"sata_school_go/models"
	"sata_school_go/utils"
)

// SeedAll runs all seeders
func SeedAll() {
	log.Println("Starting database seeding...")

	SeedSchool()
	SeedStaff()
	SeedRoster()

	log.Println("Database seeding completed successfully!")
}

// SeedSchool seeds a demo tenant with admin and gate-terminal credentials
func SeedSchool() {
	var count int64
	database.DB.Model(&models.School{}).Count(&count)
	if count > 0 {
		log.Println("Schools already seeded, skipping...")
		return
	}

	password, _ := utils.HashPassword("admin123")
	extra, _ := utils.HashPassword("extra123")
	gate, _ := utils.HashPassword("gate123")

	school := models.School{
		Name:          "Demo School",
		Login:         "demo-school",
		Password:      password,
		ExtraPassword: extra,
		GateLogin:     "demo-gate",
		GatePassword:  gate,
		Phone:         "+998901234567",
		Budget:        0,
	}
	if err := database.DB.Create(&school).Error; err != nil {
		log.Printf("Failed to seed school: %v", err)
	}
}

// SeedStaff seeds one admin staff user for the demo tenant
func SeedStaff() {
	var count int64
	database.DB.Model(&models.StaffUser{}).Count(&count)
	if count > 0 {
		log.Println("Staff already seeded, skipping...")
		return
	}

	var school models.School
	if err := database.DB.Where("login = ?", "demo-school").First(&school).Error; err != nil {
		return
	}

	password, _ := utils.HashPassword("staff123")
	staff := models.StaffUser{
		SchoolID: school.ID,
		Name:     "Demo Admin",
		Login:    "demo-admin",
		Password: password,
		Role:     "admin",
	}
	if err := database.DB.Create(&staff).Error; err != nil {
		log.Printf("Failed to seed staff: %v", err)
	}
}

// SeedRoster seeds a small group/subject/teacher/student roster so payment
// and attendance flows can be exercised right after first boot
func SeedRoster() {
	var count int64
	database.DB.Model(&models.Group{}).Count(&count)
	if count > 0 {
		log.Println("Roster already seeded, skipping...")
		return
	}

	var school models.School
	if err := database.DB.Where("login = ?", "demo-school").First(&school).Error; err != nil {
		return
	}

	group := models.Group{SchoolID: school.ID, Name: "1-A", Level: "1"}
	database.DB.Create(&group)

	subject := models.Subject{SchoolID: school.ID, Name: "Mathematics"}
	database.DB.Create(&subject)

	teacherPassword, _ := utils.HashPassword("teacher123")
	teacherNo := utils.NewEmployeeNo()
	teacher := models.Teacher{
		SchoolID:    school.ID,
		FirstName:   "Aziz",
		LastName:    "Karimov",
		Phone:       "+998901112233",
		Subject:     "Mathematics",
		HourlyRate:  50000,
		WeeklyHours: 12,
		Schedule: models.WeekSchedule{
			Monday: 2, Tuesday: 2, Wednesday: 2, Thursday: 2, Friday: 2, Saturday: 2,
		},
		MonthlySalary: 2400000,
		EmployeeNo:    &teacherNo,
		Login:         "demo-teacher",
		Password:      teacherPassword,
	}
	database.DB.Create(&teacher)

	studentNo := utils.NewEmployeeNo()
	passport := "AA1234567"
	student := models.Student{
		SchoolID:            school.ID,
		GroupID:             group.ID,
		FirstName:           "Ali",
		LastName:            "Valiyev",
		PassportNumber:      &passport,
		Gender:              "male",
		BirthDate:           time.Date(2015, 5, 10, 0, 0, 0, 0, time.UTC),
		AdmissionDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		MonthlyFee:          500000,
		IsActive:            true,
		PhoneNumber:         "+998909998877",
		GuardianPhoneNumber: "+998901231212",
		Source:              "website",
		EmployeeNo:          &studentNo,
	}
	database.DB.Create(&student)
}
