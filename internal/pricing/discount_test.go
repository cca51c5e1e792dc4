package pricing

import "testing"

func TestCalculate(t *testing.T) {
	tests := []struct {
		name   string
		price  int64
		coupon *Coupon
		points int64
		want   Quote
	}{
		{"no discount", 8000, nil, 0, Quote{8000, 0, 0, 8000}},
		{"percent and points", 10000, &Coupon{Percent: 20}, 3000, Quote{10000, 2000, 3000, 5000}},
		{"fixed exceeds price", 5000, &Coupon{FixedPoints: 6000}, 0, Quote{5000, 5000, 0, 0}},
		{"percent floors", 999, &Coupon{Percent: 10}, 0, Quote{999, 99, 0, 900}},
		{"full percent", 4000, &Coupon{Percent: 100}, 0, Quote{4000, 4000, 0, 0}},
		{"points cover rest", 3000, &Coupon{FixedPoints: 1000}, 2500, Quote{3000, 1000, 2500, 0}},
		{"percent wins over fixed", 1000, &Coupon{FixedPoints: 900, Percent: 10}, 0, Quote{1000, 100, 0, 900}},
		{"negative points ignored", 1000, nil, -50, Quote{1000, 0, 0, 1000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.price, tt.coupon, tt.points)
			if got != tt.want {
				t.Errorf("Calculate(%d, %+v, %d) = %+v, want %+v", tt.price, tt.coupon, tt.points, got, tt.want)
			}
		})
	}
}

func TestCalculateStaysWithinPrice(t *testing.T) {
	coupons := []*Coupon{nil, {FixedPoints: 1}, {FixedPoints: 250}, {FixedPoints: 100000}}
	for pct := 1; pct <= 100; pct += 9 {
		coupons = append(coupons, &Coupon{Percent: pct})
	}
	for _, price := range []int64{1, 7, 100, 999, 10000} {
		for _, c := range coupons {
			for points := int64(0); points <= price; points += price/7 + 1 {
				q := Calculate(price, c, points)
				if q.Final < 0 || q.Final > price {
					t.Fatalf("Calculate(%d, %+v, %d).Final = %d, want within [0, %d]", price, c, points, q.Final, price)
				}
				if q.CouponDiscount > price {
					t.Fatalf("Calculate(%d, %+v, %d).CouponDiscount = %d exceeds price", price, c, points, q.CouponDiscount)
				}
			}
		}
	}
}

func TestMaxUsablePoints(t *testing.T) {
	tests := []struct {
		requested, balance, price, discount, want int64
	}{
		{3000, 5000, 10000, 2000, 3000},
		{9000, 5000, 10000, 2000, 5000},
		{9000, 50000, 10000, 2000, 8000},
		{100, 100, 5000, 6000, 0},
		{-1, 100, 100, 0, 0},
	}
	for _, tt := range tests {
		if got := MaxUsablePoints(tt.requested, tt.balance, tt.price, tt.discount); got != tt.want {
			t.Errorf("MaxUsablePoints(%d, %d, %d, %d) = %d, want %d", tt.requested, tt.balance, tt.price, tt.discount, got, tt.want)
		}
	}
}

func TestValidatePercent(t *testing.T) {
	for _, pct := range []int{1, 50, 100} {
		if err := ValidatePercent(pct); err != nil {
			t.Errorf("ValidatePercent(%d) = %v, want nil", pct, err)
		}
	}
	for _, pct := range []int{0, -5, 101} {
		if err := ValidatePercent(pct); err != ErrPercentRange {
			t.Errorf("ValidatePercent(%d) = %v, want ErrPercentRange", pct, err)
		}
	}
}
