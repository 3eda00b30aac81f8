package hospital_test

import (
	"testing"

	"github.com/RichKitibwa/BloodLink/internal/hospital"
)

func TestTierEstimator(t *testing.T) {
	t.Parallel()

	est := hospital.TierEstimator{}
	mulago := hospital.Hospital{Name: "Mulago", District: "Kampala", Region: "Central"}

	cases := []struct {
		name string
		to   hospital.Hospital
		want int
	}{
		{"same district", hospital.Hospital{District: "Kampala", Region: "Central"}, 5},
		{"same region", hospital.Hospital{District: "Wakiso", Region: "Central"}, 50},
		{"other region", hospital.Hospital{District: "Gulu", Region: "Northern"}, 200},
		{"unknown region", hospital.Hospital{}, 200},
	}
	for _, tc := range cases {
		if got := est.EstimateKm(mulago, tc.to); got != tc.want {
			t.Fatalf("%s: EstimateKm = %d, want %d", tc.name, got, tc.want)
		}
	}
}
