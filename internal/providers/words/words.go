// Package words completes from the words already present in the buffer.
//
// The buffer is snapshotted on the loop and scanned on a background
// goroutine. Candidates are ordered by distance from the cursor and
// delivered in batches, so the nearest words show up first while the rest
// of the buffer is still being scanned.
package words

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/dshills/ksense/internal/completion"
	"github.com/dshills/ksense/internal/logging"
)

const (
	// DefaultMinWordSize is the shortest prefix completed interactively.
	DefaultMinWordSize = 2
	// DefaultMaxScan is the number of runes scanned around the cursor.
	DefaultMaxScan = 1 << 20
	// DefaultBatchSize is the number of candidates per delivery.
	DefaultBatchSize = 64
)

// Config configures a Provider.
type Config struct {
	Priority    int
	MinWordSize int
	MaxScan     int
	BatchSize   int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MinWordSize: DefaultMinWordSize,
		MaxScan:     DefaultMaxScan,
		BatchSize:   DefaultBatchSize,
	}
}

// Provider proposes buffer words sharing the typed prefix.
type Provider struct {
	completion.ProviderBase

	cfg Config
	log *logrus.Entry
}

// New creates a word provider.
func New(cfg Config, log logrus.FieldLogger) *Provider {
	def := DefaultConfig()
	if cfg.MinWordSize <= 0 {
		cfg.MinWordSize = def.MinWordSize
	}
	if cfg.MaxScan <= 0 {
		cfg.MaxScan = def.MaxScan
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	return &Provider{cfg: cfg, log: logging.Component(log, "words")}
}

// Title returns "Words".
func (p *Provider) Title() string { return "Words" }

// Priority returns the configured priority.
func (p *Provider) Priority(*completion.Context) int { return p.cfg.Priority }

type candidate struct {
	word     string
	distance int
}

// tooShort stands in for the results of an interactive query whose word is
// still shorter than MinWordSize. Refilter keeps it until the word is long
// enough and then asks for a real scan.
type tooShort struct {
	*completion.Results
}

func (p *Provider) short(cc *completion.Context) bool {
	return cc.Activation() != completion.UserRequested && len([]rune(cc.Word())) < p.cfg.MinWordSize
}

// PopulateAsync scans a snapshot of the buffer. Interactive requests for
// words shorter than MinWordSize get an empty list until the word grows.
func (p *Provider) PopulateAsync(ctx context.Context, cc *completion.Context, done func(completion.ListModel, error)) {
	if p.short(cc) {
		done(&tooShort{completion.NewResults()}, nil)
		return
	}
	word := cc.Word()

	buf := cc.Buffer()
	begin, _, _ := cc.Bounds()
	lo := max(begin-p.cfg.MaxScan/2, 0)
	hi := min(lo+p.cfg.MaxScan, buf.Len())
	snapshot := []rune(buf.Slice(lo, hi))
	origin := begin - lo

	results := completion.NewFilteredResults(nil, keepPrefix(word), nil)
	batchSize := p.cfg.BatchSize
	log := p.log.WithField("context_id", cc.ID())

	go func() {
		found := scan(snapshot, origin, word)
		log.WithField("candidates", len(found)).Trace("scanned")

		delivered := false
		deliver := func(batch []completion.Proposal, last bool) {
			cc.Post(func() {
				if ctx.Err() != nil {
					if !delivered {
						delivered = true
						done(nil, ctx.Err())
					}
					return
				}
				results.Add(batch...)
				if !delivered && (len(batch) > 0 || last) {
					delivered = true
					done(results, nil)
				}
			})
		}

		for i := 0; i < len(found); i += batchSize {
			if ctx.Err() != nil {
				break
			}
			end := min(i+batchSize, len(found))
			batch := make([]completion.Proposal, 0, end-i)
			for _, c := range found[i:end] {
				batch = append(batch, &completion.Item{Label: c.word, Kind: completion.KindText, Score: c.distance})
			}
			deliver(batch, end == len(found))
		}
		if len(found) == 0 || ctx.Err() != nil {
			deliver(nil, true)
		}
	}()
}

// Refilter narrows the scanned candidates to the longer prefix. Once a
// word that was too short reaches MinWordSize it returns false so the
// buffer is scanned.
func (p *Provider) Refilter(cc *completion.Context, results completion.ListModel) bool {
	switch r := results.(type) {
	case *tooShort:
		return p.short(cc)
	case *completion.FilteredResults:
		r.SetFilter(keepPrefix(cc.Word()))
		return true
	}
	return false
}

func keepPrefix(prefix string) func(completion.Proposal) bool {
	return func(p completion.Proposal) bool {
		label := p.(*completion.Item).Label
		return label != prefix && strings.HasPrefix(label, prefix)
	}
}

// scan returns the distinct words of text starting with prefix, nearest to
// origin first. The word beginning at origin is skipped.
func scan(text []rune, origin int, prefix string) []candidate {
	best := make(map[string]int)
	for i := 0; i < len(text); {
		if !isWordChar(text[i]) {
			i++
			continue
		}
		start := i
		for i < len(text) && isWordChar(text[i]) {
			i++
		}
		if start == origin {
			continue
		}
		w := string(text[start:i])
		if !strings.HasPrefix(w, prefix) || w == prefix {
			continue
		}
		d := start - origin
		if d < 0 {
			d = -d
		}
		if prev, ok := best[w]; !ok || d < prev {
			best[w] = d
		}
	}

	out := make([]candidate, 0, len(best))
	for w, d := range best {
		out = append(out, candidate{word: w, distance: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].distance != out[j].distance {
			return out[i].distance < out[j].distance
		}
		return out[i].word < out[j].word
	})
	return out
}

func isWordChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
