package loan

import (
	"math/big"
	"testing"
)

func TestInterestOwed(t *testing.T) {
	cases := []struct {
		portion int64
		rateBps uint64
		want    int64
	}{
		{100, 1_000, 10},
		{100, 0, 0},
		{1, 1_000, 0},   // truncates toward zero
		{999, 1_000, 99}, // 99.9 truncates
		{100, 10_000, 100},
		{0, 1_000, 0},
	}
	for _, tc := range cases {
		got := interestOwed(big.NewInt(tc.portion), tc.rateBps)
		if got.Int64() != tc.want {
			t.Fatalf("interestOwed(%d, %d) = %s, want %d", tc.portion, tc.rateBps, got, tc.want)
		}
	}
}

func TestFeeAmount(t *testing.T) {
	cases := []struct {
		amount int64
		bps    uint64
		want   int64
	}{
		{1_000, 250, 25},
		{1_000, 0, 0},
		{3, 3_000, 0}, // 0.9 truncates
		{1_060, 1_000, 106},
		{1_000, 10_000, 1_000},
	}
	for _, tc := range cases {
		got := feeAmount(big.NewInt(tc.amount), tc.bps)
		if got.Int64() != tc.want {
			t.Fatalf("feeAmount(%d, %d) = %s, want %d", tc.amount, tc.bps, got, tc.want)
		}
	}
}
