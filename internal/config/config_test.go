package config

import "testing"

func TestDefaultRoundConfig(t *testing.T) {
	c := DefaultRoundConfig()

	if c.WarmUpSeconds != 60 {
		t.Fatalf("WarmUpSeconds = %d, want 60", c.WarmUpSeconds)
	}
	if c.ObstacleRowSeconds != 15 {
		t.Fatalf("ObstacleRowSeconds = %d, want 15", c.ObstacleRowSeconds)
	}
	if c.AccelerationSeconds != 30 {
		t.Fatalf("AccelerationSeconds = %d, want 30", c.AccelerationSeconds)
	}
	if c.FinishPacksPerValue != 4 || c.FinishQuestionsPerPack != 3 {
		t.Fatalf("pack inventory = %d packs x %d questions, want 4 x 3",
			c.FinishPacksPerValue, c.FinishQuestionsPerPack)
	}
}

func TestFinishSecondsByValue(t *testing.T) {
	c := DefaultRoundConfig()

	cases := []struct {
		value int
		want  int
	}{
		{40, 15},
		{60, 20},
		{80, 30},
		{999, 30}, // unknown values fall back to the longest timer
	}
	for _, tc := range cases {
		if got := c.FinishSeconds(tc.value); got != tc.want {
			t.Fatalf("FinishSeconds(%d) = %d, want %d", tc.value, got, tc.want)
		}
	}
}

func TestValidFinishPackValue(t *testing.T) {
	c := DefaultRoundConfig()

	for _, v := range []int{40, 60, 80} {
		if !c.ValidFinishPackValue(v) {
			t.Fatalf("ValidFinishPackValue(%d) = false, want true", v)
		}
	}
	for _, v := range []int{0, 50, 100} {
		if c.ValidFinishPackValue(v) {
			t.Fatalf("ValidFinishPackValue(%d) = true, want false", v)
		}
	}
}

func TestGetRoundConfigWithoutFile(t *testing.T) {
	c := GetRoundConfig()
	if c == nil {
		t.Fatal("GetRoundConfig returned nil")
	}
	if c.WarmUpSeconds != 60 {
		t.Fatalf("WarmUpSeconds = %d, want the default 60", c.WarmUpSeconds)
	}
}
