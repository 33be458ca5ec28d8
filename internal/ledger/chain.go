package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/trackrecord/internal/model"
)

// GenesisHash is the designated predecessor for the first chain entry
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// ErrChainCorrupt indicates a verification mismatch: either a bug or
// tampering. Once observed, further appends are refused until the chain
// is inspected by hand.
var ErrChainCorrupt = errors.New("chain integrity violation")

// ContentHash computes the deterministic dedup hash for a claim.
// Fields are pipe-joined with the capture time normalized to UTC RFC 3339.
func ContentHash(claimText, quote, sourceURL string, capturedAt time.Time) string {
	payload := strings.Join([]string{
		claimText,
		quote,
		sourceURL,
		capturedAt.UTC().Format(time.RFC3339),
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// ChainHash links an entry to its predecessor
func ChainHash(contentHash, prevChainHash string, chainIndex int64) string {
	payload := fmt.Sprintf("%s|%s|%d", contentHash, prevChainHash, chainIndex)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Tail is the stored entry with the highest chain index
type Tail struct {
	ChainHash  string
	ChainIndex int64
}

// Store is the slice of persistence the ledger needs
type Store interface {
	// ChainTail returns the current tail, or nil if the chain is empty
	ChainTail(ctx context.Context) (*Tail, error)
	// ClaimsInChainOrder returns all claims ordered by ascending chain index
	ClaimsInChainOrder(ctx context.Context) ([]model.Claim, error)
}

// Entry is one linked ledger record
type Entry struct {
	ContentHash   string
	ChainHash     string
	PrevChainHash string
	ChainIndex    int64
}

// Ledger serializes appends to the single global hash chain. The
// read-tail/compute/insert sequence is a read-modify-write race under
// concurrency, so every append holds the mutex across the commit.
type Ledger struct {
	mu     sync.Mutex
	store  Store
	halted bool
}

// New creates a ledger over the given store
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// Append computes the next chain entry and runs commit while holding the
// append lock. commit must insert the claim (or fail); the entry is only
// considered appended if commit returns nil.
func (l *Ledger) Append(ctx context.Context, claimText, quote, sourceURL string, capturedAt time.Time, commit func(Entry) error) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.halted {
		return nil, ErrChainCorrupt
	}

	tail, err := l.store.ChainTail(ctx)
	if err != nil {
		return nil, fmt.Errorf("read chain tail: %w", err)
	}

	prev := GenesisHash
	index := int64(1)
	if tail != nil {
		prev = tail.ChainHash
		index = tail.ChainIndex + 1
	}

	contentHash := ContentHash(claimText, quote, sourceURL, capturedAt)
	entry := Entry{
		ContentHash:   contentHash,
		ChainHash:     ChainHash(contentHash, prev, index),
		PrevChainHash: prev,
		ChainIndex:    index,
	}

	if err := commit(entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

// Verdict is the outcome of verifying one entry
type Verdict struct {
	ContentValid bool
	ChainValid   bool
}

// Valid reports whether both checks passed
func (v Verdict) Valid() bool {
	return v.ContentValid && v.ChainValid
}

// VerifyEntry recomputes both hashes from the claim's stored raw fields
// and checks linkage against the expected predecessor hash. Mismatches
// are reported, never repaired.
func VerifyEntry(c *model.Claim, expectedPrev string) Verdict {
	v := Verdict{
		ContentValid: ContentHash(c.Text, c.Quote, c.SourceURL, c.CapturedAt) == c.ContentHash,
	}
	v.ChainValid = c.PrevChainHash == expectedPrev &&
		ChainHash(c.ContentHash, c.PrevChainHash, c.ChainIndex) == c.ChainHash
	return v
}

// VerifyAll walks the whole chain in index order. The first corrupt entry
// halts further appends on this ledger.
func (l *Ledger) VerifyAll(ctx context.Context) (model.ChainVerification, error) {
	claims, err := l.store.ClaimsInChainOrder(ctx)
	if err != nil {
		return model.ChainVerification{}, fmt.Errorf("load chain: %w", err)
	}

	result := model.ChainVerification{
		Checked:      len(claims),
		IsValid:      true,
		ContentValid: true,
		ChainValid:   true,
	}

	expectedPrev := GenesisHash
	expectedIndex := int64(1)
	for i := range claims {
		c := &claims[i]
		v := VerifyEntry(c, expectedPrev)
		if c.ChainIndex != expectedIndex {
			v.ChainValid = false
		}
		if !v.Valid() {
			result.IsValid = false
			result.ContentValid = v.ContentValid
			result.ChainValid = v.ChainValid
			result.FirstBadIdx = c.ChainIndex
			result.Detail = fmt.Sprintf("entry %d (claim %s) failed verification", c.ChainIndex, c.ID)
			l.halt()
			return result, nil
		}
		expectedPrev = c.ChainHash
		expectedIndex = c.ChainIndex + 1
	}

	return result, nil
}

// VerifyClaim checks a single stored claim against its stored predecessor
// link. Chain-wide linkage still requires VerifyAll.
func (l *Ledger) VerifyClaim(c *model.Claim) Verdict {
	v := VerifyEntry(c, c.PrevChainHash)
	if !v.Valid() {
		l.halt()
	}
	return v
}

func (l *Ledger) halt() {
	l.mu.Lock()
	l.halted = true
	l.mu.Unlock()
}

// Halted reports whether appends are currently refused
func (l *Ledger) Halted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.halted
}
