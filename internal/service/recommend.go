package service

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"cinetix/internal/models"
	"cinetix/internal/storage"
)

// RecommendService ranks bookable movies for a user. Content-based:
// each movie becomes a term-frequency vector over its title, language
// and genre; the user profile is the rating-weighted sum of the vectors
// of movies they rated. Users with no rated history get the top-rated
// bookable movies instead.
type RecommendService struct {
	store storage.Store
}

func NewRecommendService(store storage.Store) *RecommendService {
	return &RecommendService{store: store}
}

func (s *RecommendService) Recommend(ctx context.Context, userID int64, topN int) ([]models.Movie, error) {
	if topN <= 0 {
		topN = 5
	}

	candidateIDs, err := s.store.ListBookableMovieIDs(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	if len(candidateIDs) == 0 {
		return []models.Movie{}, nil
	}
	candidates := make(map[int64]bool, len(candidateIDs))
	for _, id := range candidateIDs {
		candidates[id] = true
	}

	movies, err := s.store.ListMovies(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]models.Movie, len(movies))
	for _, m := range movies {
		byID[m.ID] = m
	}

	ratings, err := s.store.UserRatings(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(ratings) == 0 {
		return s.topRated(ctx, byID, candidates, topN)
	}

	// Profile = sum of rated movie vectors weighted by rating.
	profile := make(map[string]float64)
	rated := make(map[int64]bool)
	for _, r := range ratings {
		m, ok := byID[r.MovieID]
		if !ok {
			continue
		}
		rated[r.MovieID] = true
		for term, tf := range termFreq(m) {
			profile[term] += tf * float64(r.Rating)
		}
	}

	type scored struct {
		movie models.Movie
		score float64
	}
	var ranked []scored
	for id := range candidates {
		if rated[id] {
			continue
		}
		m, ok := byID[id]
		if !ok {
			continue
		}
		if score := cosine(profile, termFreq(m)); score > 0 {
			ranked = append(ranked, scored{movie: m, score: score})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].movie.ID < ranked[j].movie.ID
	})

	out := make([]models.Movie, 0, topN)
	for _, r := range ranked {
		if len(out) == topN {
			break
		}
		out = append(out, r.movie)
	}
	return out, nil
}

func (s *RecommendService) topRated(ctx context.Context, byID map[int64]models.Movie, candidates map[int64]bool, topN int) ([]models.Movie, error) {
	avgs, err := s.store.MovieAvgRatings(ctx)
	if err != nil {
		return nil, err
	}

	type scored struct {
		movie models.Movie
		avg   float64
	}
	var ranked []scored
	for id := range candidates {
		m, ok := byID[id]
		if !ok {
			continue
		}
		ranked = append(ranked, scored{movie: m, avg: avgs[id]})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].avg != ranked[j].avg {
			return ranked[i].avg > ranked[j].avg
		}
		return ranked[i].movie.ID < ranked[j].movie.ID
	})

	out := make([]models.Movie, 0, topN)
	for _, r := range ranked {
		if len(out) == topN {
			break
		}
		out = append(out, r.movie)
	}
	return out, nil
}

func termFreq(m models.Movie) map[string]float64 {
	text := strings.ToLower(m.Title + " " + m.Language + " " + m.Genre)
	tf := make(map[string]float64)
	total := 0
	for _, term := range strings.Fields(text) {
		tf[term]++
		total++
	}
	if total == 0 {
		return tf
	}
	for term := range tf {
		tf[term] /= float64(total)
	}
	return tf
}

func cosine(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for term, va := range a {
		normA += va * va
		if vb, ok := b[term]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
