package position

import (
	"math"
	"testing"
	"time"

	"github.com/ppiankov/trackrecord/internal/model"
)

func TestSizeFor(t *testing.T) {
	tests := []struct {
		confidence float64
		want       float64
	}{
		{0.95, 1000},
		{0.80, 500},
		{0.60, 300},
		{0.40, 100},
		{0.25, 50},
		{0.65, 300}, // Nearest step
		{0.70, 300}, // Sits a hair nearer 0.60 than 0.80 in float64
		{0.99, 1000},
		{0.10, 50},
		{0.875, 1000}, // Distance tie keeps the higher-confidence step
	}
	for _, tt := range tests {
		if got := SizeFor(tt.confidence); got != tt.want {
			t.Errorf("SizeFor(%v) = %v, want %v", tt.confidence, got, tt.want)
		}
	}
}

func TestOpen(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	claim := &model.Claim{ID: "c1", SubjectID: "s1", Confidence: 0.80}
	match := &model.MarketMatch{MarketID: "m1", EntryPrice: 0.50}

	p := Open(claim, match, now)
	if p.ClaimID != "c1" || p.SubjectID != "s1" || p.MarketID != "m1" {
		t.Errorf("identifiers not carried over: %+v", p)
	}
	if p.Size != 500 {
		t.Errorf("Size = %v, want 500", p.Size)
	}
	if p.Shares != 1000 {
		t.Errorf("Shares = %v, want 1000", p.Shares)
	}
	if p.Status != model.PositionOpen {
		t.Errorf("Status = %v, want open", p.Status)
	}
	if p.ID == "" {
		t.Error("position has no ID")
	}
}

func TestOpen_EntryPriceFloor(t *testing.T) {
	claim := &model.Claim{Confidence: 0.25}
	match := &model.MarketMatch{EntryPrice: 0.001}

	p := Open(claim, match, time.Now())
	if p.EntryPrice != MinEntryPrice {
		t.Errorf("EntryPrice = %v, want floor %v", p.EntryPrice, MinEntryPrice)
	}
	if p.Shares != 50/MinEntryPrice {
		t.Errorf("Shares = %v, want %v", p.Shares, 50/MinEntryPrice)
	}
}

func TestClose_SettlementPrice(t *testing.T) {
	// Matched at 0.62, settled at 0.97 for a correct call
	claim := &model.Claim{ID: "c1", Confidence: 0.80}
	match := &model.MarketMatch{MarketID: "m1", EntryPrice: 0.62}
	p := Open(claim, match, time.Now())

	settle := 0.97
	if err := Close(p, model.OutcomeYes, &settle, time.Now()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if p.Status != model.PositionClosed {
		t.Errorf("Status = %v, want closed", p.Status)
	}
	if p.ExitPrice != 0.97 {
		t.Errorf("ExitPrice = %v, want 0.97", p.ExitPrice)
	}
	wantPnL := (500 / 0.62) * (0.97 - 0.62)
	if math.Abs(p.RealizedPnL-wantPnL) > 1e-9 {
		t.Errorf("RealizedPnL = %v, want %v", p.RealizedPnL, wantPnL)
	}
	if p.ClosedAt == nil {
		t.Error("ClosedAt not set")
	}
}

func TestClose_BinaryFallback(t *testing.T) {
	claim := &model.Claim{Confidence: 0.60}
	match := &model.MarketMatch{EntryPrice: 0.40}

	win := Open(claim, match, time.Now())
	if err := Close(win, model.OutcomeYes, nil, time.Now()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if win.ExitPrice != 1.0 {
		t.Errorf("win ExitPrice = %v, want 1.0", win.ExitPrice)
	}
	if win.RealizedPnL <= 0 {
		t.Errorf("win RealizedPnL = %v, want positive", win.RealizedPnL)
	}

	loss := Open(claim, match, time.Now())
	if err := Close(loss, model.OutcomeNo, nil, time.Now()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if loss.ExitPrice != 0.0 {
		t.Errorf("loss ExitPrice = %v, want 0.0", loss.ExitPrice)
	}
	if math.Abs(loss.RealizedPnL+loss.Size) > 1e-9 {
		t.Errorf("loss RealizedPnL = %v, want -%v", loss.RealizedPnL, loss.Size)
	}
}

func TestClose_Idempotence(t *testing.T) {
	claim := &model.Claim{Confidence: 0.60}
	match := &model.MarketMatch{EntryPrice: 0.40}
	p := Open(claim, match, time.Now())

	if err := Close(p, model.OutcomeYes, nil, time.Now()); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := Close(p, model.OutcomeNo, nil, time.Now()); err != ErrAlreadyClosed {
		t.Errorf("second Close err = %v, want ErrAlreadyClosed", err)
	}
	if p.Outcome != model.OutcomeYes {
		t.Errorf("Outcome mutated to %v after rejected second close", p.Outcome)
	}
}

func TestExposure(t *testing.T) {
	closedAt := time.Now()
	positions := []model.Position{
		{Size: 500, Status: model.PositionOpen},
		{Size: 300, Status: model.PositionOpen},
		{Size: 1000, Status: model.PositionClosed, ClosedAt: &closedAt},
	}
	if got := Exposure(positions); got != 800 {
		t.Errorf("Exposure = %v, want 800", got)
	}
}
