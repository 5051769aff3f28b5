package lucidity

import "testing"

func TestResolveTier(t *testing.T) {
	cases := []struct {
		score int
		want  Tier
	}{
		{100, TierStable},
		{70, TierStable},
		{69, TierUneasy},
		{40, TierUneasy},
		{39, TierFractured},
		{20, TierFractured},
		{19, TierDeranged},
		{1, TierDeranged},
		{0, TierTerminal},
		{-10, TierTerminal},
		{-100, TierTerminal},
		{200, TierStable},
		{-200, TierTerminal},
	}
	for _, tc := range cases {
		if got := ResolveTier(tc.score); got != tc.want {
			t.Errorf("ResolveTier(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestClampScore(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{150, 100},
		{100, 100},
		{99, 99},
		{0, 0},
		{-100, -100},
		{-250, -100},
	}
	for _, tc := range cases {
		if got := ClampScore(tc.in); got != tc.want {
			t.Errorf("ClampScore(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestTierImpaired(t *testing.T) {
	impaired := map[Tier]bool{
		TierStable:    false,
		TierUneasy:    false,
		TierFractured: false,
		TierDeranged:  true,
		TierTerminal:  true,
	}
	for tier, want := range impaired {
		if got := tier.Impaired(); got != want {
			t.Errorf("%s.Impaired() = %v, want %v", tier, got, want)
		}
	}
}

func TestTierJSONRoundTrip(t *testing.T) {
	for _, tier := range []Tier{TierStable, TierUneasy, TierFractured, TierDeranged, TierTerminal} {
		data, err := tier.MarshalJSON()
		if err != nil {
			t.Fatalf("marshal %s: %v", tier, err)
		}
		var back Tier
		if err := back.UnmarshalJSON(data); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if back != tier {
			t.Errorf("round trip %s came back as %s", tier, back)
		}
	}
}
