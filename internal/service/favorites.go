package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JohanDevl/Exams-Viewer/internal/domain/category"
	"github.com/JohanDevl/Exams-Viewer/internal/domain/favorites"
	"github.com/JohanDevl/Exams-Viewer/internal/persistence"
)

// Favorite filters accepted by FavoriteQuestions.
const (
	FilterFavorites = "favorites"
	FilterNotes     = "notes"
	FilterCategory  = "category"
)

func (t *Tracker) persistFavorites(ctx context.Context) (persistence.SaveResult, error) {
	err := t.gw.SaveFavorites(ctx, t.favorites)
	if errors.Is(err, persistence.ErrQuotaWarning) {
		t.logger.Warn("favorites kept in memory only", "error", err)
		return persistence.SaveResult{Warning: "Unable to save favorites due to storage constraints."}, nil
	}
	if err != nil {
		t.logger.Error("failed to save favorites", "error", err)
	}
	return persistence.SaveResult{}, err
}

// mutateFavorite applies fn to one question's entry and persists the
// document.
func (t *Tracker) mutateFavorite(ctx context.Context, examCode string, questionNumber int, fn func(examCode string) (favorites.Entry, error)) (favorites.Entry, persistence.SaveResult, error) {
	examCode, err := validExamCode(examCode)
	if err != nil {
		return favorites.Entry{}, persistence.SaveResult{}, err
	}
	if err := validQuestionNumber(questionNumber); err != nil {
		return favorites.Entry{}, persistence.SaveResult{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	e, err := fn(examCode)
	if err != nil {
		return favorites.Entry{}, persistence.SaveResult{}, err
	}
	t.cache.Invalidate(StatusKey{ExamCode: examCode, QuestionNumber: questionNumber})
	res, err := t.persistFavorites(ctx)
	return e, res, err
}

// Favorites returns a copy of the favorites document.
func (t *Tracker) Favorites() *favorites.Data {
	t.mu.Lock()
	defer t.mu.Unlock()
	return clone(t.favorites)
}

func (t *Tracker) ToggleFavorite(ctx context.Context, examCode string, questionNumber int) (favorites.Entry, persistence.SaveResult, error) {
	return t.mutateFavorite(ctx, examCode, questionNumber, func(examCode string) (favorites.Entry, error) {
		return t.favorites.Toggle(examCode, questionNumber, t.now()), nil
	})
}

func (t *Tracker) SetNote(ctx context.Context, examCode string, questionNumber int, note string) (favorites.Entry, persistence.SaveResult, error) {
	return t.mutateFavorite(ctx, examCode, questionNumber, func(examCode string) (favorites.Entry, error) {
		return t.favorites.SetNote(examCode, questionNumber, note, t.now()), nil
	})
}

// SetCategory assigns a known category to a question; an empty name clears it.
func (t *Tracker) SetCategory(ctx context.Context, examCode string, questionNumber int, name string) (favorites.Entry, persistence.SaveResult, error) {
	return t.mutateFavorite(ctx, examCode, questionNumber, func(examCode string) (favorites.Entry, error) {
		e, err := t.favorites.SetCategory(examCode, questionNumber, name, t.now())
		if err != nil {
			return e, fmt.Errorf("%w: %v %q", ErrInvalidInput, err, name)
		}
		return e, nil
	})
}

// FavoriteQuestions lists question numbers of an exam matching filter.
func (t *Tracker) FavoriteQuestions(examCode, filter, categoryName string) ([]int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch filter {
	case "", FilterFavorites:
		return t.favorites.FavoriteQuestions(examCode), nil
	case FilterNotes:
		return t.favorites.QuestionsWithNotes(examCode), nil
	case FilterCategory:
		if categoryName == "" {
			return nil, fmt.Errorf("%w: category filter needs a category name", ErrInvalidInput)
		}
		return t.favorites.QuestionsByCategory(examCode, categoryName), nil
	}
	return nil, fmt.Errorf("%w: unknown filter %q", ErrInvalidInput, filter)
}

func (t *Tracker) Categories() []*category.Category {
	t.mu.Lock()
	defer t.mu.Unlock()
	return category.All(t.favorites.CustomCategories)
}

// AddCategory adds a custom category and reports whether it was new.
func (t *Tracker) AddCategory(ctx context.Context, name string) (bool, persistence.SaveResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	added, err := t.favorites.AddCustomCategory(name)
	if err != nil {
		return false, persistence.SaveResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !added {
		return false, persistence.SaveResult{}, nil
	}
	res, err := t.persistFavorites(ctx)
	return true, res, err
}

// RemoveCategory deletes a custom category and clears it from every
// question that used it.
func (t *Tracker) RemoveCategory(ctx context.Context, name string) (bool, persistence.SaveResult, error) {
	if category.IsDefault(name) {
		return false, persistence.SaveResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, category.ErrReserved)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.favorites.RemoveCustomCategory(name) {
		return false, persistence.SaveResult{}, nil
	}
	t.cache.Clear()
	res, err := t.persistFavorites(ctx)
	return true, res, err
}

// FavoritesExport is the downloadable favorites document.
type FavoritesExport struct {
	ExportDate string          `json:"exportDate"`
	Count      int             `json:"count"`
	Data       *favorites.Data `json:"data"`
}

func (t *Tracker) ExportFavorites() FavoritesExport {
	d := t.Favorites()
	return FavoritesExport{
		ExportDate: t.now().UTC().Format(time.RFC3339),
		Count:      d.Count(),
		Data:       d,
	}
}

// ImportFavorites merges an exported document into the current one and
// returns how many entries were taken over.
func (t *Tracker) ImportFavorites(ctx context.Context, in *favorites.Data) (int, persistence.SaveResult, error) {
	if in == nil || in.Favorites == nil {
		return 0, persistence.SaveResult{}, fmt.Errorf("%w: favorites document is empty", ErrInvalidInput)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	imported := t.favorites.Merge(in)
	for examCode := range in.Favorites {
		t.cache.InvalidateExam(examCode)
	}
	t.logger.Info("favorites imported", "entries", imported)
	res, err := t.persistFavorites(ctx)
	return imported, res, err
}

func (t *Tracker) ResetFavorites(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.gw.ResetFavorites(ctx); err != nil {
		return err
	}
	t.favorites = favorites.Default()
	t.cache.Clear()
	return nil
}
