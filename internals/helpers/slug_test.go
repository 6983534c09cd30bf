package helper

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorhub_backend/internals/databases/dbtest"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Term 1: Biaya Sekolah":     "term-1-biaya-sekolah",
		"  Science Olympiad  ":      "science-olympiad",
		"Études & Café (Grade 9)":   "etudes-cafe-grade-9",
		"Semester -- Exam   Prep!!": "semester-exam-prep",
		"!!!":                       "link",
		"":                          "link",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in, 0), in)
	}

	long := Slugify(strings.Repeat("abc ", 40), 20)
	assert.LessOrEqual(t, len(long), 20)
	assert.False(t, strings.HasSuffix(long, "-"))
}

func TestWithSuffix(t *testing.T) {
	assert.Equal(t, "study-tour-2", withSuffix("study-tour", "-2", 100))
	assert.Equal(t, "study-2", withSuffix("study-tour", "-2", 8))
	assert.Equal(t, "link-2", withSuffix("---", "-2", 10))
}

type slugRow struct {
	ID   uint   `gorm:"primaryKey"`
	Slug string `gorm:"column:slug"`
}

func TestUniqueSlug(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, db.Table("slug_rows").AutoMigrate(&slugRow{}))
	ctx := context.Background()

	got, err := UniqueSlug(ctx, db, "slug_rows", "slug", "study-tour", 100)
	require.NoError(t, err)
	assert.Equal(t, "study-tour", got)

	for _, s := range []string{"Study-Tour", "study-tour-2", "study-tour-4", "study-tours"} {
		require.NoError(t, db.Table("slug_rows").Create(&slugRow{Slug: s}).Error)
	}
	got, err = UniqueSlug(ctx, db, "slug_rows", "slug", "study-tour", 100)
	require.NoError(t, err)
	assert.Equal(t, "study-tour-3", got, "smallest free suffix, case-insensitive")
}
