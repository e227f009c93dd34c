package thought

import "testing"

func TestLatestSummaryFallback(t *testing.T) {
	p := NewParser()
	if got := p.LatestSummary(); got != FallbackSummary {
		t.Errorf("expected fallback %q, got %q", FallbackSummary, got)
	}

	// Mid-sentence text matches no heuristic; fallback stays.
	p.AddChunk("I am going to look at")
	if got := p.LatestSummary(); got != FallbackSummary {
		t.Errorf("expected fallback after non-matching chunk, got %q", got)
	}
}

func TestBoldHeuristic(t *testing.T) {
	p := NewParser()
	p.AddChunk("Let me start. **Scanning the file tree** and then more.")
	if got := p.LatestSummary(); got != "Scanning the file tree" {
		t.Errorf("expected bold span, got %q", got)
	}

	// The last bolded span wins.
	p.AddChunk(" **Checking error handling**")
	if got := p.LatestSummary(); got != "Checking error handling" {
		t.Errorf("expected last bold span, got %q", got)
	}
}

func TestBoldSpansChunkBoundary(t *testing.T) {
	split := NewParser()
	split.AddChunk("**Analyz")
	split.AddChunk("ing auth**")

	whole := NewParser()
	whole.AddChunk("**Analyzing auth**")

	if split.LatestSummary() != whole.LatestSummary() {
		t.Errorf("boundary-spanning mismatch: split=%q whole=%q",
			split.LatestSummary(), whole.LatestSummary())
	}
	if got := split.LatestSummary(); got != "Analyzing auth" {
		t.Errorf("expected %q, got %q", "Analyzing auth", got)
	}
}

func TestListItemHeuristic(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"dash", "- check imports\n- verify locking\n", "verify locking"},
		{"star", "* first item\n", "first item"},
		{"numbered", "1. parse config\n2. wire server\n", "wire server"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewParser()
			p.AddChunk(tc.in)
			if got := p.LatestSummary(); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIncompleteListItemIgnored(t *testing.T) {
	p := NewParser()
	// The tail line has no trailing newline yet, so it is still in progress.
	p.AddChunk("- done item\n- still typ")
	if got := p.LatestSummary(); got != "done item" {
		t.Errorf("expected complete item only, got %q", got)
	}
}

func TestSentenceHeuristic(t *testing.T) {
	p := NewParser()
	p.AddChunk("The config looks fine. Now checking the handler.")
	if got := p.LatestSummary(); got != "Now checking the handler." {
		t.Errorf("expected last sentence, got %q", got)
	}
}

func TestSentenceRequiresTerminatedBuffer(t *testing.T) {
	p := NewParser()
	p.AddChunk("First thought done. Second thought in progr")
	// Buffer does not end with a terminator; no heuristic matches yet, and
	// there was no previous summary, so the fallback holds.
	if got := p.LatestSummary(); got != FallbackSummary {
		t.Errorf("expected fallback for unterminated buffer, got %q", got)
	}
	p.AddChunk("ess.")
	if got := p.LatestSummary(); got != "Second thought in progress." {
		t.Errorf("expected completed sentence, got %q", got)
	}
}

func TestBoldBeatsSentence(t *testing.T) {
	// A bolded statement wins over a terminated sentence regardless of order.
	p := NewParser()
	p.AddChunk("**Reviewing the parser** happened earlier. Then a plain sentence followed.")
	if got := p.LatestSummary(); got != "Reviewing the parser" {
		t.Errorf("expected bold to win over sentence, got %q", got)
	}
}

func TestBoldBeatsListItem(t *testing.T) {
	p := NewParser()
	p.AddChunk("- a finished list line\nand **the bolded action**")
	if got := p.LatestSummary(); got != "the bolded action" {
		t.Errorf("expected bold to win over list item, got %q", got)
	}
}

func TestSummaryNeverReverts(t *testing.T) {
	p := NewParser()
	p.AddChunk("**Reading main.go**")
	if got := p.LatestSummary(); got != "Reading main.go" {
		t.Fatalf("setup failed, got %q", got)
	}
	// Subsequent chunks that produce no new candidate keep the old summary.
	p.AddChunk(" some trailing fragment with no structure")
	if got := p.LatestSummary(); got != "Reading main.go" {
		t.Errorf("summary reverted to %q", got)
	}
}

func TestMonotonicNonEmpty(t *testing.T) {
	chunks := []string{
		"**Start", "ing the scan**", " then text. ", "More prose without end",
		"- item\n", "** **", "***", "ends now.",
	}
	p := NewParser()
	matched := false
	for _, c := range chunks {
		p.AddChunk(c)
		got := p.LatestSummary()
		if got == "" {
			t.Fatalf("LatestSummary returned empty string after chunk %q", c)
		}
		if got != FallbackSummary {
			matched = true
		}
		if matched && got == FallbackSummary {
			t.Fatalf("summary reverted to fallback after chunk %q", c)
		}
	}
	if !matched {
		t.Fatal("expected at least one heuristic to match in the sequence")
	}
}

func TestIdempotentReads(t *testing.T) {
	p := NewParser()
	p.AddChunk("**Checking idempotence**")
	first := p.LatestSummary()
	second := p.LatestSummary()
	if first != second {
		t.Errorf("repeated reads differ: %q vs %q", first, second)
	}
}

func TestAdversarialInputNeverPanics(t *testing.T) {
	p := NewParser()
	for _, c := range []string{"", "****", "*", "**unclosed", "...", "!?.", "\n\n\n"} {
		p.AddChunk(c)
		_ = p.LatestSummary()
	}
}
