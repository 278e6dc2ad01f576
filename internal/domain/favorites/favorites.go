// Package favorites keeps per-question bookmarks, notes and categories.
package favorites

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/JohanDevl/Exams-Viewer/internal/domain/category"
)

var ErrUnknownCategory = errors.New("unknown category")

// Entry is the user data attached to one question. Timestamps are epoch ms.
type Entry struct {
	IsFavorite   bool    `json:"isFavorite"`
	Category     *string `json:"category"`
	Note         string  `json:"note"`
	DateAdded    int64   `json:"dateAdded"`
	LastModified int64   `json:"lastModified"`
}

// UnmarshalJSON also reads the single "timestamp" field older releases wrote.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type plain Entry
	var raw struct {
		plain
		Timestamp int64 `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Entry(raw.plain)
	if e.LastModified == 0 {
		e.LastModified = raw.Timestamp
	}
	if e.DateAdded == 0 {
		e.DateAdded = e.LastModified
	}
	return nil
}

// HasNote reports whether the note has visible text.
func (e *Entry) HasNote() bool {
	return strings.TrimSpace(e.Note) != ""
}

// CategoryName returns the category or "".
func (e *Entry) CategoryName() string {
	if e.Category == nil {
		return ""
	}
	return *e.Category
}

// Data is the persisted favorites document, keyed by exam code and then
// by question number.
type Data struct {
	Favorites        map[string]map[int]*Entry `json:"favorites"`
	Categories       []string                  `json:"categories"`
	CustomCategories []string                  `json:"customCategories"`
}

func Default() *Data {
	return &Data{
		Favorites:        map[string]map[int]*Entry{},
		Categories:       slices.Clone(category.Defaults),
		CustomCategories: []string{},
	}
}

func (d *Data) entry(examCode string, questionNumber int, now time.Time) *Entry {
	exam, ok := d.Favorites[examCode]
	if !ok {
		exam = map[int]*Entry{}
		d.Favorites[examCode] = exam
	}
	e, ok := exam[questionNumber]
	if !ok {
		e = &Entry{DateAdded: now.UnixMilli()}
		exam[questionNumber] = e
	}
	e.LastModified = now.UnixMilli()
	return e
}

// Get returns a copy of the entry, or the zero entry.
func (d *Data) Get(examCode string, questionNumber int) Entry {
	if e, ok := d.Favorites[examCode][questionNumber]; ok {
		return *e
	}
	return Entry{}
}

// Toggle flips the favorite flag. A question seen for the first time
// becomes a favorite.
func (d *Data) Toggle(examCode string, questionNumber int, now time.Time) Entry {
	_, existed := d.Favorites[examCode][questionNumber]
	e := d.entry(examCode, questionNumber, now)
	if existed {
		e.IsFavorite = !e.IsFavorite
	} else {
		e.IsFavorite = true
	}
	return *e
}

func (d *Data) SetNote(examCode string, questionNumber int, note string, now time.Time) Entry {
	e := d.entry(examCode, questionNumber, now)
	e.Note = note
	return *e
}

// SetCategory assigns a known category; an empty name clears it.
func (d *Data) SetCategory(examCode string, questionNumber int, name string, now time.Time) (Entry, error) {
	name = strings.TrimSpace(name)
	if name != "" && !d.HasCategory(name) {
		return Entry{}, ErrUnknownCategory
	}
	e := d.entry(examCode, questionNumber, now)
	if name == "" {
		e.Category = nil
	} else {
		e.Category = &name
	}
	return *e, nil
}

func (d *Data) HasCategory(name string) bool {
	return slices.Contains(d.Categories, name) || slices.Contains(d.CustomCategories, name)
}

// AllCategories lists the defaults followed by the custom categories.
func (d *Data) AllCategories() []string {
	return append(slices.Clone(d.Categories), d.CustomCategories...)
}

// AddCustomCategory adds a category and reports whether it was new.
func (d *Data) AddCustomCategory(name string) (bool, error) {
	cat, err := category.New(name)
	if err != nil {
		return false, err
	}
	if d.HasCategory(cat.Name) {
		return false, nil
	}
	d.CustomCategories = append(d.CustomCategories, cat.Name)
	return true, nil
}

// RemoveCustomCategory deletes a custom category and clears it from every
// question that used it.
func (d *Data) RemoveCustomCategory(name string) bool {
	i := slices.Index(d.CustomCategories, name)
	if i < 0 {
		return false
	}
	d.CustomCategories = slices.Delete(d.CustomCategories, i, i+1)
	for _, exam := range d.Favorites {
		for _, e := range exam {
			if e.CategoryName() == name {
				e.Category = nil
			}
		}
	}
	return true
}

func (d *Data) FavoriteQuestions(examCode string) []int {
	return d.filter(examCode, func(e *Entry) bool { return e.IsFavorite })
}

func (d *Data) QuestionsWithNotes(examCode string) []int {
	return d.filter(examCode, (*Entry).HasNote)
}

func (d *Data) QuestionsByCategory(examCode, name string) []int {
	return d.filter(examCode, func(e *Entry) bool { return e.CategoryName() == name })
}

// filter returns the matching question numbers in ascending order.
func (d *Data) filter(examCode string, match func(*Entry) bool) []int {
	out := []int{}
	for qn, e := range d.Favorites[examCode] {
		if match(e) {
			out = append(out, qn)
		}
	}
	slices.Sort(out)
	return out
}

// Count is the number of stored question entries over all exams.
func (d *Data) Count() int {
	n := 0
	for _, exam := range d.Favorites {
		n += len(exam)
	}
	return n
}

// Cleanup repairs data written by older releases and reports whether
// anything changed. The default categories are always restored, the
// obsolete "custom" category is removed and lowercase defaults are
// capitalized on every question.
func (d *Data) Cleanup() bool {
	changed := !slices.Equal(d.Categories, category.Defaults)
	d.Categories = slices.Clone(category.Defaults)

	if d.Favorites == nil {
		d.Favorites = map[string]map[int]*Entry{}
		changed = true
	}

	custom := make([]string, 0, len(d.CustomCategories))
	for _, c := range d.CustomCategories {
		if category.Normalize(c) != c || category.IsDefault(c) || slices.Contains(custom, c) {
			changed = true
			continue
		}
		custom = append(custom, c)
	}
	d.CustomCategories = custom

	for examCode, exam := range d.Favorites {
		if exam == nil {
			delete(d.Favorites, examCode)
			changed = true
			continue
		}
		for qn, e := range exam {
			if e == nil {
				delete(exam, qn)
				changed = true
				continue
			}
			if e.Category == nil {
				continue
			}
			switch name := category.Normalize(*e.Category); {
			case name == "":
				e.Category = nil
				changed = true
			case name != *e.Category:
				e.Category = &name
				changed = true
			}
		}
	}
	return changed
}

// Merge imports other into d. For entries present on both sides the most
// recently modified one wins; custom categories are united.
func (d *Data) Merge(other *Data) (imported int) {
	for _, c := range other.CustomCategories {
		if !d.HasCategory(c) {
			d.CustomCategories = append(d.CustomCategories, c)
		}
	}
	for examCode, exam := range other.Favorites {
		if d.Favorites[examCode] == nil {
			d.Favorites[examCode] = map[int]*Entry{}
		}
		for qn, e := range exam {
			if e == nil {
				continue
			}
			cur, ok := d.Favorites[examCode][qn]
			if ok && cur.LastModified >= e.LastModified {
				continue
			}
			cp := *e
			d.Favorites[examCode][qn] = &cp
			imported++
		}
	}
	d.Cleanup()
	return imported
}
