package youtube

import "testing"

func TestTitleCleaner(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"official video suffix", "Midnight City (Official Video)", "Midnight City"},
		{"hd bracket", "Wait [HD]", "Wait"},
		{"lyric video", "Outro (Lyric Video)", "Outro"},
		{"live with year", "Reunion (Live at Wembley 2019)", "Reunion"},
		{"feat credit", "Go! feat. Mai Lan", "Go!"},
		{"feat in parens", "Go! (feat. Mai Lan)", "Go!"},
		{"dash tail", "Intro — Official Music Video", "Intro"},
		{"plain title untouched", "Steve McQueen", "Steve McQueen"},
		{"meaningful parens kept", "Song (Acoustic)", "Song (Acoustic)"},
		{"unbalanced left alone", "Broken (title", "Broken (title"},
		{"surrounding space", "  Solitude  ", "Solitude"},
	}

	cleaner := NewTitleCleaner()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleaner.Clean(tt.input); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsLikelyGuff(t *testing.T) {
	cleaner := NewTitleCleaner()

	if !cleaner.isLikelyGuff("(Official Music Video)") {
		t.Error("expected official-video decoration to be guff")
	}
	if cleaner.isLikelyGuff("(Where Is My Mind cover)") {
		t.Error("a mostly-words segment should not be guff")
	}
}
