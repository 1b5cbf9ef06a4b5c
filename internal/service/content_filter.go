package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/observability"
	"github.com/hermesradio/hermes/internal/repository"
)

// Word budget fallbacks, used when the settings rows are missing.
const (
	defaultMinWords         = 15
	defaultMaxWords         = 100
	defaultMaxChars         = 600
	defaultBreakingMinWords = 10
	defaultBreakingMaxWords = 50
)

// defaultBlockedPhrases keeps LM output away from financial advice and
// call-to-action language. Operators override the list via the
// blocked_phrases setting, comma separated.
const defaultBlockedPhrases = "buy, sell, invest, investing, price target, prediction, click, visit, subscribe, go to, check out"

// defaultBlockedDomains are url-ish fragments that read terribly on air.
// These match as plain substrings; "http" also covers "https".
const defaultBlockedDomains = "http, www., .com, .org, .net"

// breakingNewsPhrase is blocked in regular scripts only. Actual breaking
// segments are allowed to say it.
const breakingNewsPhrase = "breaking news"

// WordBudget is the size window one script must fit. The writer receives
// it as a soft instruction; the filter enforces it.
type WordBudget struct {
	MinWords int
	MaxWords int
	MaxChars int
}

// Verdict reports one validation pass. Reasons lists every violation so a
// rewrite prompt can name them all at once.
type Verdict struct {
	OK      bool
	Reasons []string
}

// Reason joins the violations into one log-friendly line.
func (v *Verdict) Reason() string {
	return strings.Join(v.Reasons, "; ")
}

// ContentFilter validates generated scripts before they reach synthesis.
type ContentFilter struct {
	settings repository.SettingRepository
	logger   *slog.Logger
}

// NewContentFilter creates a ContentFilter over the settings store.
func NewContentFilter(settings repository.SettingRepository, logger *slog.Logger) *ContentFilter {
	return &ContentFilter{
		settings: settings,
		logger:   observability.WithComponent(logger, "filter"),
	}
}

// Budget returns the current word/char window for a script. Breaking
// breaks run on the tighter breaking pair.
func (f *ContentFilter) Budget(ctx context.Context, breaking bool) (WordBudget, error) {
	minKey, minDefault := models.SettingBreakMinWords, defaultMinWords
	maxKey, maxDefault := models.SettingBreakMaxWords, defaultMaxWords
	if breaking {
		minKey, minDefault = models.SettingBreakingMinWords, defaultBreakingMinWords
		maxKey, maxDefault = models.SettingBreakingMaxWords, defaultBreakingMaxWords
	}

	minWords, err := f.settings.Int(ctx, minKey, minDefault)
	if err != nil {
		return WordBudget{}, fmt.Errorf("reading %s: %w", minKey, err)
	}
	maxWords, err := f.settings.Int(ctx, maxKey, maxDefault)
	if err != nil {
		return WordBudget{}, fmt.Errorf("reading %s: %w", maxKey, err)
	}
	maxChars, err := f.settings.Int(ctx, models.SettingBreakMaxChars, defaultMaxChars)
	if err != nil {
		return WordBudget{}, fmt.Errorf("reading %s: %w", models.SettingBreakMaxChars, err)
	}

	return WordBudget{MinWords: minWords, MaxWords: maxWords, MaxChars: maxChars}, nil
}

// Validate checks a script against the budget and the blocked lists. An
// error means the settings store failed, not that the script was rejected.
func (f *ContentFilter) Validate(ctx context.Context, script string, breaking bool) (*Verdict, error) {
	if strings.TrimSpace(script) == "" {
		return &Verdict{Reasons: []string{"empty script"}}, nil
	}

	budget, err := f.Budget(ctx, breaking)
	if err != nil {
		return nil, err
	}

	var reasons []string

	words := len(strings.Fields(script))
	if words < budget.MinWords {
		reasons = append(reasons, fmt.Sprintf("too short (%d words, min %d)", words, budget.MinWords))
	}
	if words > budget.MaxWords {
		reasons = append(reasons, fmt.Sprintf("too long (%d words, max %d)", words, budget.MaxWords))
	}
	if utf8.RuneCountInString(script) > budget.MaxChars {
		reasons = append(reasons, fmt.Sprintf("exceeds %d chars", budget.MaxChars))
	}

	phraseVerdict, err := f.CheckPhrases(ctx, script, breaking)
	if err != nil {
		return nil, err
	}
	reasons = append(reasons, phraseVerdict.Reasons...)

	verdict := &Verdict{OK: len(reasons) == 0, Reasons: reasons}
	if !verdict.OK {
		f.logger.Info("script rejected",
			slog.Bool("breaking", breaking),
			slog.String("reasons", verdict.Reason()))
	}
	return verdict, nil
}

// CheckPhrases checks only the blocked phrase and domain lists, with no
// word budget. Dialog scripts run through this; their size is budgeted in
// lines, not words. Phrases match on word boundaries so "sell" never fires
// on "counsellor"; domain fragments match as substrings.
func (f *ContentFilter) CheckPhrases(ctx context.Context, script string, breaking bool) (*Verdict, error) {
	var reasons []string

	phrases, err := f.settings.String(ctx, models.SettingBlockedPhrases, defaultBlockedPhrases)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", models.SettingBlockedPhrases, err)
	}
	blocked := splitList(phrases)
	if !breaking {
		blocked = append(blocked, breakingNewsPhrase)
	}
	for _, phrase := range blocked {
		if phrasePattern(phrase).MatchString(script) {
			reasons = append(reasons, fmt.Sprintf("blocked phrase: %q", phrase))
		}
	}

	domains, err := f.settings.String(ctx, models.SettingBlockedDomains, defaultBlockedDomains)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", models.SettingBlockedDomains, err)
	}
	lower := strings.ToLower(script)
	for _, term := range splitList(domains) {
		if strings.Contains(lower, strings.ToLower(term)) {
			reasons = append(reasons, fmt.Sprintf("blocked term: %q", term))
		}
	}

	return &Verdict{OK: len(reasons) == 0, Reasons: reasons}, nil
}

// phrasePattern builds the case-insensitive word-boundary matcher for one
// blocked phrase.
func phrasePattern(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`)
}

// splitList parses a comma-separated settings list, dropping empties.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
