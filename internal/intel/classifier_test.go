package intel

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"eve-intel/internal/chatlog"
	"eve-intel/internal/graph"
)

// chainUniverse builds SYS00 - SYS01 - ... - SYS16, so SYSnn is nn jumps
// from SYS00. Isolated holds no gates.
func chainUniverse() *graph.Universe {
	u := graph.NewUniverse()
	for i := 0; i <= 16; i++ {
		u.AddSystem(&graph.System{ID: int32(100 + i), Name: fmt.Sprintf("SYS%02d", i), Region: "Chain"})
		if i > 0 {
			u.AddGate(int32(100+i-1), int32(100+i))
		}
	}
	u.AddSystem(&graph.System{ID: 999, Name: "Isolated"})
	u.AddAlias("DUP", 102)
	u.AddAlias("DUP", 109)
	u.AddShip("Rifter")
	u.AddShip("Sabre")
	u.AddStopWord("nv")
	u.AddStopWord("in")
	return u
}

func intelLine(msg string) chatlog.Line {
	return chatlog.Line{
		Time:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Listener: "Alice",
		Channel:  "Intel",
		Sender:   "Bob",
		Message:  msg,
	}
}

func classify(t *testing.T, msg string) Report {
	t.Helper()
	u := chainUniverse()
	home, _ := u.System(100)
	return NewClassifier(u).Classify(intelLine(msg), home)
}

func TestClassify_Banding(t *testing.T) {
	tests := []struct {
		msg   string
		kind  Kind
		jumps int
	}{
		{"SYS00 +1", Critical, 0},
		{"SYS03 red", High, 3},
		{"SYS04", High, 4},
		{"SYS05", Low, 5},
		{"SYS07 gang", Low, 7},
		{"SYS10", Low, 10},
		{"SYS11", Irrelevant, 11},
		{"SYS15 camp", Irrelevant, 15},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			r := classify(t, tt.msg)
			if r.Threat.Kind != tt.kind || r.Threat.Jumps != tt.jumps {
				t.Errorf("Threat = %v, want %v(%d)", r.Threat, tt.kind, tt.jumps)
			}
			if r.Distance() != tt.jumps {
				t.Errorf("Distance = %d, want %d", r.Distance(), tt.jumps)
			}
		})
	}
}

func TestClassify_Report(t *testing.T) {
	r := classify(t, "Bad Guy  sys03*  Rifter  nv")

	if r.Origin == nil || r.Origin.Name != "SYS03" {
		t.Fatalf("Origin = %v, want SYS03", r.Origin)
	}
	if r.Player != "Alice" || r.Sender != "Bob" || r.Channel != "Intel" {
		t.Errorf("report identity = %q/%q/%q", r.Player, r.Sender, r.Channel)
	}
	if r.Message != "Bad Guy  sys03*  Rifter  nv" {
		t.Errorf("Message = %q", r.Message)
	}
	if want := []string{"BAD", "GUY"}; !reflect.DeepEqual(r.Tokens, want) {
		t.Errorf("Tokens = %v, want %v", r.Tokens, want)
	}
	if want := []string{"Bad Guy"}; !reflect.DeepEqual(r.InvolvedPlayers, want) {
		t.Errorf("InvolvedPlayers = %v, want %v", r.InvolvedPlayers, want)
	}
	if r.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("report has no ID")
	}
}

func TestClassify_InvolvedPlayersSkipOverrideWords(t *testing.T) {
	tests := []struct {
		msg  string
		want []string
	}{
		{"Bad Guy  SYS03  clr", []string{"Bad Guy"}},
		{"SYS03  status?", nil},
		{"SYS03  CLEAR sts", nil},
		{"Clear Skies  SYS03", []string{"Clear Skies"}},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			r := classify(t, tt.msg)
			if !reflect.DeepEqual(r.InvolvedPlayers, tt.want) {
				t.Errorf("InvolvedPlayers = %v, want %v", r.InvolvedPlayers, tt.want)
			}
		})
	}
}

func TestClassify_UnknownWhenOnlyNoise(t *testing.T) {
	r := classify(t, "Rifter sabre NV in")
	if r.Threat.Kind != Unknown {
		t.Fatalf("Threat = %v, want unknown", r.Threat)
	}
	if r.Route != nil || r.Origin != nil || r.Distance() != -1 {
		t.Errorf("unknown report carries a route: %+v", r)
	}
}

func TestClassify_UnreachableIsUnknown(t *testing.T) {
	r := classify(t, "Isolated +5")
	if r.Threat.Kind != Unknown {
		t.Fatalf("Threat = %v, want unknown", r.Threat)
	}
	if want := []string{"+5"}; !reflect.DeepEqual(r.Tokens, want) {
		t.Errorf("Tokens = %v, want %v", r.Tokens, want)
	}
}

func TestClassify_FarthestCandidateWins(t *testing.T) {
	r := classify(t, "SYS02 SYS09")
	if r.Origin == nil || r.Origin.Name != "SYS09" {
		t.Fatalf("Origin = %v, want SYS09", r.Origin)
	}
	if len(r.Tokens) != 0 {
		t.Errorf("system tokens left in residual: %v", r.Tokens)
	}

	amb := classify(t, "dup")
	if amb.Origin == nil || amb.Origin.ID != 109 {
		t.Errorf("ambiguous alias resolved to %v, want SYS09", amb.Origin)
	}
}

func TestClassify_Overrides(t *testing.T) {
	tests := []struct {
		msg  string
		kind Kind
	}{
		{"SYS02 clr", NoThreat},
		{"SYS02 CLEAR", NoThreat},
		{"SYS05 clea", NoThreat},
		{"SYS06 clr", Irrelevant},
		{"SYS01 status?", StatusRequest},
		{"SYS14 sts", StatusRequest},
		{"SYS02 clear of Bob", NoThreat},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			r := classify(t, tt.msg)
			if r.Threat.Kind != tt.kind {
				t.Errorf("Threat = %v, want %v", r.Threat, tt.kind)
			}
			if (tt.kind == NoThreat || tt.kind == StatusRequest) && r.Threat.System != r.Origin {
				t.Errorf("Threat.System = %v, want origin %v", r.Threat.System, r.Origin)
			}
		})
	}
}

func TestClassifier_Relevant(t *testing.T) {
	c := NewClassifier(chainUniverse())
	if !c.Relevant(intelLine("SYS01")) {
		t.Error("pilot intel line should be relevant")
	}
	sys := intelLine("Channel changed to Local : SYS01")
	sys.Sender = chatlog.SystemSender
	local := intelLine("SYS01")
	local.Local = true
	for _, l := range []chatlog.Line{sys, local, intelLine("  ")} {
		if c.Relevant(l) {
			t.Errorf("Relevant(%+v) = true", l)
		}
	}
}

func TestTokenize(t *testing.T) {
	c := NewClassifier(chainUniverse())
	got := c.tokenize("Solar System - sys01*  rifter nv?  who?")
	want := []string{"SYS01", "WHO"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tokenize = %v, want %v", got, want)
	}
}

func TestNormalize(t *testing.T) {
	c := NewClassifier(chainUniverse())
	got := c.normalize("Bad* Guy  Rifter  SYS01 nv  Other")
	if want := "Bad Guy  SYS01  Other"; got != want {
		t.Errorf("normalize = %q, want %q", got, want)
	}
}
