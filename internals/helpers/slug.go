package helper

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

var reSlugJunk = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify maps "Term 1: Biaya Sekolah" to "term-1-biaya-sekolah": accents
// stripped, anything else collapsed to single hyphens, capped at maxLen runes
// (100 when <= 0). Returns "link" when nothing is left.
func Slugify(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = 100
	}
	var b strings.Builder
	for _, r := range norm.NFD.String(strings.ToLower(s)) {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	out := strings.Trim(reSlugJunk.ReplaceAllString(b.String(), "-"), "-")
	if rs := []rune(out); len(rs) > maxLen {
		out = strings.TrimRight(string(rs[:maxLen]), "-")
	}
	if out == "" {
		return "link"
	}
	return out
}

// UniqueSlug returns base, or base-N with the smallest free N >= 2. Matching is
// case-insensitive and includes soft-deleted rows.
func UniqueSlug(ctx context.Context, db *gorm.DB, table, column, base string, maxLen int) (string, error) {
	if maxLen <= 0 {
		maxLen = 100
	}
	prefix := withSuffix(base, "-000", maxLen)
	prefix = prefix[:len(prefix)-len("-000")]

	var taken []string
	err := db.WithContext(ctx).
		Table(table).
		Where(fmt.Sprintf("LOWER(%s) LIKE ?", column), strings.ToLower(prefix)+"%").
		Pluck(column, &taken).Error
	if err != nil {
		return "", err
	}
	used := make(map[string]bool, len(taken))
	for _, s := range taken {
		used[strings.ToLower(s)] = true
	}

	if !used[strings.ToLower(base)] {
		return base, nil
	}
	for n := 2; ; n++ {
		cand := withSuffix(base, "-"+strconv.Itoa(n), maxLen)
		if !used[strings.ToLower(cand)] {
			return cand, nil
		}
	}
}

// withSuffix cuts base so base+suffix fits in maxLen runes.
func withSuffix(base, suffix string, maxLen int) string {
	keep := maxLen - len(suffix)
	rs := []rune(base)
	if keep < 1 {
		keep = 1
	}
	if len(rs) > keep {
		rs = rs[:keep]
	}
	trimmed := strings.TrimRight(string(rs), "-")
	if trimmed == "" {
		trimmed = "link"
	}
	return trimmed + suffix
}
