package discord

import "testing"

func TestCanManageGuild(t *testing.T) {
	tests := []struct {
		name        string
		permissions string
		want        bool
	}{
		{"zero", "0", false},
		{"manage guild alone", "32", true},
		{"administrator alone is not enough", "8", false},
		{"both bits", "40", true},
		{"manage guild among other bits", "2147483680", true},
		{"garbage decodes to zero", "not-a-number", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanManageGuild(tt.permissions); got != tt.want {
				t.Errorf("CanManageGuild(%q) = %v, want %v", tt.permissions, got, tt.want)
			}
		})
	}
}

func TestCanInviteBot(t *testing.T) {
	tests := []struct {
		name        string
		permissions string
		want        bool
	}{
		{"zero", "0", false},
		{"administrator alone", "8", true},
		{"manage guild alone", "32", true},
		{"both", "40", true},
		{"unrelated bits", "2048", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanInviteBot(tt.permissions); got != tt.want {
				t.Errorf("CanInviteBot(%q) = %v, want %v", tt.permissions, got, tt.want)
			}
		})
	}
}

func TestParsePermissions_Uint64Range(t *testing.T) {
	// full permission fields exceed the float53 safe range
	const raw = "9007199254740993" // 2^53 + 1
	if got := ParsePermissions(raw); got != 9007199254740993 {
		t.Errorf("ParsePermissions(%q) = %d, lost precision", raw, got)
	}
}
