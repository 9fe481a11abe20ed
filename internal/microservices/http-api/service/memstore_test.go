package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"reviewhub/internal/microservices/http-api/models"
	"reviewhub/internal/microservices/http-api/repository"
	"reviewhub/internal/notify"
	"reviewhub/internal/shared"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for Postgres. It enforces the same
// unique keys and cascades the schema declares.
type memStore struct {
	mu         sync.Mutex
	users      map[string]*models.User
	categories map[int64]*models.Category
	genres     map[int64]*models.Genre
	titles     map[int64]*models.Title
	links      map[int64]map[int64]bool // title -> genre
	reviews    map[int64]*models.Review
	comments   map[int64]*models.Comment
	nextID     int64
	clock      time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[string]*models.User{},
		categories: map[int64]*models.Category{},
		genres:     map[int64]*models.Genre{},
		titles:     map[int64]*models.Title{},
		links:      map[int64]map[int64]bool{},
		reviews:    map[int64]*models.Review{},
		comments:   map[int64]*models.Comment{},
		clock:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

// tick returns strictly increasing timestamps so pub_date ordering is stable.
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func duplicate(constraint string) error {
	return &repository.ConstraintError{Kind: repository.ErrDuplicate, Constraint: constraint, Err: io.EOF}
}

func window[T any](items []T, page shared.Page) []T {
	if page.Offset >= len(items) {
		return []T{}
	}
	end := page.Offset + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[page.Offset:end]
}

// ---- users

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.users {
		if other.Username == u.Username {
			return duplicate("idx_users_username")
		}
		if other.Email == u.Email {
			return duplicate("idx_users_email")
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r memUsers) Update(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, other := range r.s.users {
		if id == u.ID {
			continue
		}
		if other.Username == u.Username {
			return duplicate("idx_users_username")
		}
		if other.Email == u.Email {
			return duplicate("idx_users_email")
		}
	}
	code := stored.ConfirmationCode
	cp := *u
	cp.ConfirmationCode = code
	r.s.users[u.ID] = &cp
	return nil
}

func (r memUsers) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.users, id)
	for rid, rv := range r.s.reviews {
		if rv.AuthorID == id {
			r.s.deleteReviewLocked(rid)
		}
	}
	for cid, c := range r.s.comments {
		if c.AuthorID == id {
			delete(r.s.comments, cid)
		}
	}
	return nil
}

func (r memUsers) find(match func(*models.User) bool) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memUsers) FindByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username })
}

func (r memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r memUsers) List(_ context.Context, search string, page shared.Page) ([]models.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.User
	for _, u := range r.s.users {
		if search == "" || strings.Contains(strings.ToLower(u.Username), strings.ToLower(search)) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return window(out, page), int64(len(out)), nil
}

func (r memUsers) SetConfirmationCode(_ context.Context, id, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.ConfirmationCode = code
	return nil
}

// ---- categories and genres

type memCategories struct{ s *memStore }

func (r memCategories) Create(_ context.Context, c *models.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.categories {
		if other.Slug == c.Slug {
			return duplicate("idx_categories_slug")
		}
	}
	c.ID = r.s.id()
	cp := *c
	r.s.categories[c.ID] = &cp
	return nil
}

func (r memCategories) List(_ context.Context, search string, page shared.Page) ([]models.Category, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Category
	for _, c := range r.s.categories {
		if search == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(search)) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return window(out, page), int64(len(out)), nil
}

func (r memCategories) FindBySlug(_ context.Context, slug string) (*models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.categories {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memCategories) DeleteBySlug(_ context.Context, slug string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, c := range r.s.categories {
		if c.Slug != slug {
			continue
		}
		for _, t := range r.s.titles {
			if t.CategoryID != nil && *t.CategoryID == id {
				t.CategoryID = nil
			}
		}
		delete(r.s.categories, id)
		return nil
	}
	return repository.ErrNotFound
}

type memGenres struct{ s *memStore }

func (r memGenres) Create(_ context.Context, g *models.Genre) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.genres {
		if other.Slug == g.Slug {
			return duplicate("idx_genres_slug")
		}
	}
	g.ID = r.s.id()
	cp := *g
	r.s.genres[g.ID] = &cp
	return nil
}

func (r memGenres) List(_ context.Context, search string, page shared.Page) ([]models.Genre, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Genre
	for _, g := range r.s.genres {
		if search == "" || strings.Contains(strings.ToLower(g.Name), strings.ToLower(search)) {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return window(out, page), int64(len(out)), nil
}

func (r memGenres) FindBySlug(_ context.Context, slug string) (*models.Genre, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, g := range r.s.genres {
		if g.Slug == slug {
			cp := *g
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memGenres) FindBySlugs(_ context.Context, slugs []string) ([]models.Genre, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Genre
	for _, g := range r.s.genres {
		for _, slug := range slugs {
			if g.Slug == slug {
				out = append(out, *g)
			}
		}
	}
	return out, nil
}

func (r memGenres) DeleteBySlug(_ context.Context, slug string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, g := range r.s.genres {
		if g.Slug != slug {
			continue
		}
		for _, set := range r.s.links {
			delete(set, id)
		}
		delete(r.s.genres, id)
		return nil
	}
	return repository.ErrNotFound
}

// ---- titles

type memTitles struct{ s *memStore }

// hydrateLocked fills the associations and the derived rating like the SQL read does.
func (s *memStore) hydrateLocked(t *models.Title) models.Title {
	cp := *t
	cp.Category = nil
	if t.CategoryID != nil {
		if c, ok := s.categories[*t.CategoryID]; ok {
			cc := *c
			cp.Category = &cc
		}
	}
	cp.Genres = nil
	for gid := range s.links[t.ID] {
		if g, ok := s.genres[gid]; ok {
			cp.Genres = append(cp.Genres, *g)
		}
	}
	sort.Slice(cp.Genres, func(i, j int) bool { return cp.Genres[i].Slug < cp.Genres[j].Slug })

	var sum, n int
	for _, rv := range s.reviews {
		if rv.TitleID == t.ID {
			sum += rv.Score
			n++
		}
	}
	cp.Rating = nil
	if n > 0 {
		avg := float64(sum) / float64(n)
		cp.Rating = &avg
	}
	return cp
}

func (r memTitles) Create(_ context.Context, t *models.Title, genres []models.Genre) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.id()
	cp := *t
	r.s.titles[t.ID] = &cp
	r.s.links[t.ID] = map[int64]bool{}
	for _, g := range genres {
		r.s.links[t.ID][g.ID] = true
	}
	return nil
}

func (r memTitles) Update(_ context.Context, t *models.Title, genres []models.Genre, replaceGenres bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.titles[t.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Name, stored.Year, stored.Description, stored.CategoryID = t.Name, t.Year, t.Description, t.CategoryID
	if replaceGenres {
		r.s.links[t.ID] = map[int64]bool{}
		for _, g := range genres {
			r.s.links[t.ID][g.ID] = true
		}
	}
	return nil
}

func (r memTitles) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.titles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.titles, id)
	delete(r.s.links, id)
	for rid, rv := range r.s.reviews {
		if rv.TitleID == id {
			r.s.deleteReviewLocked(rid)
		}
	}
	return nil
}

func (r memTitles) GetByID(_ context.Context, id int64) (*models.Title, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.titles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := r.s.hydrateLocked(t)
	return &out, nil
}

func (r memTitles) Exists(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.titles[id]
	return ok, nil
}

func (r memTitles) List(_ context.Context, f repository.TitleFilter, page shared.Page) ([]models.Title, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Title
	for _, t := range r.s.titles {
		h := r.s.hydrateLocked(t)
		if f.Category != "" && (h.Category == nil || h.Category.Slug != f.Category) {
			continue
		}
		if f.Genre != "" {
			found := false
			for _, g := range h.Genres {
				found = found || g.Slug == f.Genre
			}
			if !found {
				continue
			}
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(h.Name), strings.ToLower(f.Name)) {
			continue
		}
		if f.Year != nil && h.Year != *f.Year {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, page), int64(len(out)), nil
}

// ---- reviews

type memReviews struct{ s *memStore }

func (s *memStore) deleteReviewLocked(id int64) {
	delete(s.reviews, id)
	for cid, c := range s.comments {
		if c.ReviewID == id {
			delete(s.comments, cid)
		}
	}
}

func (s *memStore) withAuthorLocked(rv *models.Review) models.Review {
	cp := *rv
	if u, ok := s.users[rv.AuthorID]; ok {
		cp.Author = *u
	}
	return cp
}

func (r memReviews) Create(_ context.Context, rv *models.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.titles[rv.TitleID]; !ok {
		return &repository.ConstraintError{Kind: repository.ErrInvalidReference, Constraint: "fk_reviews_title", Err: io.EOF}
	}
	for _, other := range r.s.reviews {
		if other.TitleID == rv.TitleID && other.AuthorID == rv.AuthorID {
			return duplicate(repository.UniqueReviewConstraint)
		}
	}
	rv.ID = r.s.id()
	rv.PubDate = r.s.tick()
	cp := *rv
	r.s.reviews[rv.ID] = &cp
	return nil
}

func (r memReviews) Update(_ context.Context, rv *models.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.reviews[rv.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Text, stored.Score = rv.Text, rv.Score
	return nil
}

func (r memReviews) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reviews[id]; !ok {
		return repository.ErrNotFound
	}
	r.s.deleteReviewLocked(id)
	return nil
}

func (r memReviews) GetByID(_ context.Context, titleID, reviewID int64) (*models.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[reviewID]
	if !ok || rv.TitleID != titleID {
		return nil, repository.ErrNotFound
	}
	out := r.s.withAuthorLocked(rv)
	return &out, nil
}

func (r memReviews) ListByTitle(_ context.Context, titleID int64, page shared.Page) ([]models.Review, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Review
	for _, rv := range r.s.reviews {
		if rv.TitleID == titleID {
			out = append(out, r.s.withAuthorLocked(rv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PubDate.After(out[j].PubDate) })
	return window(out, page), int64(len(out)), nil
}

func (r memReviews) ExistsByTitleAndAuthor(_ context.Context, titleID int64, authorID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rv := range r.s.reviews {
		if rv.TitleID == titleID && rv.AuthorID == authorID {
			return true, nil
		}
	}
	return false, nil
}

func (r memReviews) ExistsForTitle(_ context.Context, titleID, reviewID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[reviewID]
	return ok && rv.TitleID == titleID, nil
}

// ---- comments

type memComments struct{ s *memStore }

func (s *memStore) commentWithAuthorLocked(c *models.Comment) models.Comment {
	cp := *c
	if u, ok := s.users[c.AuthorID]; ok {
		cp.Author = *u
	}
	return cp
}

func (r memComments) Create(_ context.Context, c *models.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reviews[c.ReviewID]; !ok {
		return &repository.ConstraintError{Kind: repository.ErrInvalidReference, Constraint: "fk_comments_review", Err: io.EOF}
	}
	c.ID = r.s.id()
	c.PubDate = r.s.tick()
	cp := *c
	r.s.comments[c.ID] = &cp
	return nil
}

func (r memComments) Update(_ context.Context, c *models.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.comments[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Text = c.Text
	return nil
}

func (r memComments) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.comments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.comments, id)
	return nil
}

func (r memComments) GetByID(_ context.Context, reviewID, commentID int64) (*models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.comments[commentID]
	if !ok || c.ReviewID != reviewID {
		return nil, repository.ErrNotFound
	}
	out := r.s.commentWithAuthorLocked(c)
	return &out, nil
}

func (r memComments) ListByReview(_ context.Context, reviewID int64, page shared.Page) ([]models.Comment, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Comment
	for _, c := range r.s.comments {
		if c.ReviewID == reviewID {
			out = append(out, r.s.commentWithAuthorLocked(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PubDate.After(out[j].PubDate) })
	return window(out, page), int64(len(out)), nil
}

// ---- collaborators

// captureMailer records dispatched messages.
type captureMailer struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (m *captureMailer) Dispatch(msg notify.Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return true
}

func (m *captureMailer) last() notify.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

// sequenceCodes hands out fixed codes in order.
type sequenceCodes struct {
	mu    sync.Mutex
	codes []string
}

func (g *sequenceCodes) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	code := g.codes[0]
	g.codes = g.codes[1:]
	return code, nil
}

// noLimit never blocks.
type noLimit struct{}

func (noLimit) Blocked(context.Context, string) (bool, error) {
	return false, nil
}

func (noLimit) RecordFailure(context.Context, string) (int64, error) {
	return 0, nil
}

func (noLimit) Reset(context.Context, string) error {
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// app wires every service over one memStore.
type app struct {
	store      *memStore
	mailer     *captureMailer
	auth       AuthService
	users      UserService
	categories CategoryService
	genres     GenreService
	titles     TitleService
	reviews    ReviewService
	comments   CommentService
	minter     *TokenMinter
}

func newApp(codes ...string) *app {
	s := newMemStore()
	mailer := &captureMailer{}
	minter := NewTokenMinter("0123456789abcdef0123456789abcdef", time.Hour)
	var gen CodeGenerator = RandomCodeGenerator{}
	if len(codes) > 0 {
		gen = &sequenceCodes{codes: codes}
	}
	return &app{
		store:      s,
		mailer:     mailer,
		minter:     minter,
		auth:       NewAuthService(memUsers{s}, minter, gen, noLimit{}, mailer, discardLogger()),
		users:      NewUserService(memUsers{s}),
		categories: NewCategoryService(memCategories{s}),
		genres:     NewGenreService(memGenres{s}),
		titles:     NewTitleService(memTitles{s}, memCategories{s}, memGenres{s}),
		reviews:    NewReviewService(memReviews{s}, memTitles{s}),
		comments:   NewCommentService(memComments{s}, memReviews{s}),
	}
}
