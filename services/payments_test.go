package services

import (
	"errors"
	"testing"
	"time"

	"sata_school_go/models"
	"sata_school_go/utils"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCheckOverpay(t *testing.T) {
	tests := []struct {
		name        string
		fee         int64
		alreadyPaid int64
		amount      int64
		wantErr     bool
	}{
		{"first full payment", 500000, 0, 500000, false},
		{"partial then remainder", 500000, 300000, 200000, false},
		{"partial then too much", 300000, 0, 250000, false},
		{"exceeds by one", 500000, 300000, 200001, true},
		{"single overpay", 500000, 0, 500001, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkOverpay(tt.fee, tt.alreadyPaid, tt.amount)
			if (err != nil) != tt.wantErr {
				t.Fatalf("checkOverpay(%d, %d, %d) error = %v, wantErr %v",
					tt.fee, tt.alreadyPaid, tt.amount, err, tt.wantErr)
			}
			if err != nil {
				var oe *OverpayError
				if !errors.As(err, &oe) {
					t.Fatalf("expected OverpayError, got %T", err)
				}
				if oe.Limit != tt.fee || oe.AlreadyPaid != tt.alreadyPaid {
					t.Errorf("overpay detail = limit %d paid %d, want %d %d",
						oe.Limit, oe.AlreadyPaid, tt.fee, tt.alreadyPaid)
				}
			}
		})
	}
}

func TestCheckOverpaySecondInstallmentRejected(t *testing.T) {
	// fee 300000: a 300000 payment fills the month, a further 250000 must bounce
	fee := int64(300000)
	if err := checkOverpay(fee, 0, 300000); err != nil {
		t.Fatalf("first payment rejected: %v", err)
	}
	err := checkOverpay(fee, 300000, 250000)
	var oe *OverpayError
	if !errors.As(err, &oe) {
		t.Fatalf("second payment: expected OverpayError, got %v", err)
	}
}

func TestPriorMonthToCheck(t *testing.T) {
	tests := []struct {
		name      string
		target    utils.MonthKey
		admission utils.MonthKey
		wantPrev  utils.MonthKey
		wantCheck bool
	}{
		{"mid-year month checks previous", "2024-05", "2024-01", "2024-04", true},
		{"admission month itself skips", "2024-01", "2024-01", "", false},
		{"month after admission checks admission", "2024-02", "2024-01", "2024-01", true},
		{"year boundary", "2025-01", "2024-01", "2024-12", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev, check := priorMonthToCheck(tt.target, tt.admission)
			if check != tt.wantCheck || prev != tt.wantPrev {
				t.Errorf("priorMonthToCheck(%s, %s) = (%s, %v), want (%s, %v)",
					tt.target, tt.admission, prev, check, tt.wantPrev, tt.wantCheck)
			}
		})
	}
}

func TestDebtMonthsFor(t *testing.T) {
	student := &models.Student{
		FirstName:     "Ali",
		LastName:      "Valiyev",
		GroupID:       3,
		MonthlyFee:    500000,
		AdmissionDate: date(2024, time.January, 10),
		IsActive:      true,
	}
	student.ID = 7

	t.Run("three unpaid months since admission", func(t *testing.T) {
		// admitted in January, nothing paid, projected in March
		lines := debtMonthsFor(student, "1-A", nil, "2024-03")
		if len(lines) != 3 {
			t.Fatalf("got %d debt lines, want 3", len(lines))
		}
		wantMonths := []utils.MonthKey{"2024-01", "2024-02", "2024-03"}
		for i, line := range lines {
			if line.Month != wantMonths[i] {
				t.Errorf("line %d month = %s, want %s", i, line.Month, wantMonths[i])
			}
			if line.DebtAmount != 500000 {
				t.Errorf("line %d debt = %d, want 500000", i, line.DebtAmount)
			}
			if line.GroupName != "1-A" || line.StudentFullname != "Ali Valiyev" {
				t.Errorf("line %d identity fields wrong: %+v", i, line)
			}
		}
	})

	t.Run("partial payment leaves remainder", func(t *testing.T) {
		paid := map[utils.MonthKey]int64{
			"2024-01": 500000,
			"2024-02": 300000,
		}
		lines := debtMonthsFor(student, "1-A", paid, "2024-02")
		if len(lines) != 1 {
			t.Fatalf("got %d debt lines, want 1", len(lines))
		}
		if lines[0].Month != "2024-02" || lines[0].DebtAmount != 200000 || lines[0].Paid != 300000 {
			t.Errorf("unexpected line: %+v", lines[0])
		}
	})

	t.Run("fully paid student has no lines", func(t *testing.T) {
		paid := map[utils.MonthKey]int64{"2024-01": 500000, "2024-02": 500000}
		if lines := debtMonthsFor(student, "1-A", paid, "2024-02"); len(lines) != 0 {
			t.Errorf("got %d debt lines, want 0", len(lines))
		}
	})

	t.Run("deactivation caps the walk", func(t *testing.T) {
		inactive := "2024-03"
		capped := *student
		capped.InactiveFrom = &inactive
		lines := debtMonthsFor(&capped, "1-A", nil, "2024-06")
		if len(lines) != 2 {
			t.Fatalf("got %d debt lines, want 2 (jan, feb)", len(lines))
		}
		if lines[len(lines)-1].Month != "2024-02" {
			t.Errorf("last owed month = %s, want 2024-02", lines[len(lines)-1].Month)
		}
	})

	t.Run("zero fee yields nothing", func(t *testing.T) {
		free := *student
		free.MonthlyFee = 0
		if lines := debtMonthsFor(&free, "1-A", nil, "2024-06"); lines != nil {
			t.Errorf("expected nil, got %v", lines)
		}
	})
}

func TestMergePaymentRows(t *testing.T) {
	row := func(studentID uint, name, month string, amount int64, method string, day int) models.Payment {
		return models.Payment{
			StudentID:       studentID,
			StudentFullname: name,
			GroupID:         1,
			MonthKey:        month,
			Amount:          amount,
			Method:          method,
			PaymentDate:     date(2024, time.March, day),
			Student:         models.Student{MonthlyFee: 500},
		}
	}

	merged := mergePaymentRows([]models.Payment{
		row(1, "Aziz Karimov", "2024-03", 200, "cash", 3),
		row(1, "Aziz Karimov", "2024-03", 300, "card", 10),
		row(1, "Aziz Karimov", "2024-04", 500, "cash", 28),
	})
	if len(merged) != 2 {
		t.Fatalf("got %d aggregates, want 2", len(merged))
	}
	if merged[0].Amount != 500 || merged[0].Month != "2024-03" {
		t.Errorf("march aggregate = %+v, want amount 500", merged[0])
	}
	if !merged[0].LastPaymentAt.Equal(date(2024, time.March, 10)) {
		t.Errorf("LastPaymentAt = %v, want March 10", merged[0].LastPaymentAt)
	}
	if merged[1].Amount != 500 || merged[1].Month != "2024-04" {
		t.Errorf("april aggregate = %+v, want amount 500", merged[1])
	}
}

func TestMergePaymentRowsNamesakesStaySeparate(t *testing.T) {
	// two different students sharing a full name must not collapse into
	// one display row
	merged := mergePaymentRows([]models.Payment{
		{StudentID: 1, StudentFullname: "Malika Yusupova", MonthKey: "2024-03", Amount: 400, Method: "cash", PaymentDate: date(2024, time.March, 5), Student: models.Student{MonthlyFee: 400}},
		{StudentID: 2, StudentFullname: "Malika Yusupova", MonthKey: "2024-03", Amount: 600, Method: "card", PaymentDate: date(2024, time.March, 6), Student: models.Student{MonthlyFee: 600}},
	})
	if len(merged) != 2 {
		t.Fatalf("got %d aggregates, want one per student", len(merged))
	}
	if merged[0].StudentID != 1 || merged[0].Amount != 400 || merged[0].MonthlyFee != 400 {
		t.Errorf("first aggregate = %+v, want student 1 with amount 400", merged[0])
	}
	if merged[1].StudentID != 2 || merged[1].Amount != 600 || merged[1].MonthlyFee != 600 {
		t.Errorf("second aggregate = %+v, want student 2 with amount 600", merged[1])
	}
}

func TestDominantMethod(t *testing.T) {
	tests := []struct {
		name    string
		methods []string
		want    string
	}{
		{"empty", nil, ""},
		{"single", []string{"cash"}, "cash"},
		{"clear majority", []string{"card", "cash", "card"}, "card"},
		{"tie keeps first seen", []string{"cash", "card"}, "cash"},
		{"tie keeps first seen reversed", []string{"transfer", "cash", "cash", "transfer"}, "transfer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dominantMethod(tt.methods); got != tt.want {
				t.Errorf("dominantMethod(%v) = %q, want %q", tt.methods, got, tt.want)
			}
		})
	}
}
