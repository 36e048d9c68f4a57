package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/table-service/internal/model"
	"github.com/iliyamo/table-service/internal/repository"
)

// DefaultMinStarsRedirect is the redirect threshold used when a restaurant
// has none configured.
const DefaultMinStarsRedirect = 4

// RatingResult is the outcome of a submitted rating.  RedirectURL is set
// only when the customer should be sent to the external review page.
type RatingResult struct {
	Rating      *model.Rating `json:"rating"`
	RedirectURL *string       `json:"redirect_url,omitempty"`
}

// Ratings is the one-shot feedback gate behind resolved calls.
type Ratings struct {
	tables     TableStore
	calls      CallStore
	ratings    RatingStore
	defaultMin int

	notify Notifier
	log    *log.Logger
	now    func() time.Time
}

// NewRatings wires the rating gate.  defaultMin applies to restaurants
// without a usable min_stars_redirect.
func NewRatings(tables TableStore, calls CallStore, ratings RatingStore, defaultMin int, opts Options) *Ratings {
	if tables == nil || calls == nil || ratings == nil {
		panic("nil dependency passed to NewRatings")
	}
	if defaultMin < 1 || defaultMin > 5 {
		defaultMin = DefaultMinStarsRedirect
	}
	opts = opts.withDefaults("ratings")
	return &Ratings{
		tables: tables, calls: calls, ratings: ratings, defaultMin: defaultMin,
		notify: opts.Notifier, log: opts.Logger, now: opts.Now,
	}
}

// CanRate reports whether callID belongs to tableID, is RESOLVED and has
// no rating yet.
func (s *Ratings) CanRate(ctx context.Context, tableID, callID uint64) (bool, error) {
	c, err := s.calls.Get(ctx, callID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load call: %w", err)
	}
	if c.TableID != tableID || c.Status != model.CallResolved {
		return false, nil
	}
	rated, err := s.ratings.ExistsForCall(ctx, callID)
	if err != nil {
		return false, fmt.Errorf("check rating: %w", err)
	}
	return !rated, nil
}

// Submit attaches a rating to a resolved call.  Free text is kept only
// below the redirect threshold; at or above it the caller gets the
// review URL when the restaurant has redirects enabled.
func (s *Ratings) Submit(ctx context.Context, tableID, callID uint64, stars int, feedback *string) (*RatingResult, error) {
	if stars < 1 || stars > 5 {
		return nil, validation("stars must be between 1 and 5")
	}
	c, err := s.calls.Get(ctx, callID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("call")
	}
	if err != nil {
		return nil, fmt.Errorf("load call: %w", err)
	}
	if c.TableID != tableID {
		return nil, notFound("call")
	}
	if c.Status != model.CallResolved {
		return nil, invalidState("this call cannot be rated yet")
	}
	rated, err := s.ratings.ExistsForCall(ctx, callID)
	if err != nil {
		return nil, fmt.Errorf("check rating: %w", err)
	}
	if rated {
		return nil, alreadyExists("this call has already been rated")
	}

	settings, err := s.settings(ctx, c.RestaurantID)
	if err != nil {
		return nil, err
	}
	r := &model.Rating{CallID: c.ID, Stars: stars, CreatedAt: s.now()}
	if stars < settings.MinStarsRedirect {
		r.Feedback = trimmed(feedback)
	}
	r.RedirectedGoogle = stars >= settings.MinStarsRedirect && settings.GoogleReviewsEnabled && settings.GoogleReviewsURL != ""

	err = s.ratings.Create(ctx, r)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, alreadyExists("this call has already been rated")
	}
	if err != nil {
		return nil, fmt.Errorf("create rating: %w", err)
	}

	res := &RatingResult{Rating: r}
	if r.RedirectedGoogle {
		url := settings.GoogleReviewsURL
		res.RedirectURL = &url
	}
	s.log.Infoj(log.JSON{"action": "rating.submit", "restaurant_id": c.RestaurantID, "call_id": c.ID,
		"stars": stars, "redirected": r.RedirectedGoogle})
	s.notify.Notify(ctx, model.Event{Kind: model.EventRatingSubmitted, RestaurantID: c.RestaurantID, TableID: c.TableID,
		CallID: c.ID, At: r.CreatedAt})
	return res, nil
}

func (s *Ratings) settings(ctx context.Context, restaurantID uint64) (model.RestaurantSettings, error) {
	st, err := s.tables.Settings(ctx, restaurantID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.RestaurantSettings{RestaurantID: restaurantID, MinStarsRedirect: s.defaultMin}, nil
	}
	if err != nil {
		return st, fmt.Errorf("load settings: %w", err)
	}
	if st.MinStarsRedirect < 1 || st.MinStarsRedirect > 5 {
		st.MinStarsRedirect = s.defaultMin
	}
	return st, nil
}
