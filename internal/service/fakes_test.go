package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"authflow/internal/domain"
	"authflow/internal/repository"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*domain.User

	findErr   error
	updateErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uint]*domain.User{}}
}

func (r *fakeUserRepo) Create(user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = r.nextID
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) FindByID(id uint) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) FindByEmail(email string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.users {
		if u.Email != nil && *u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) ExistsByEmail(email string) (bool, error) {
	_, err := r.FindByEmail(email)
	if err == nil {
		return true, nil
	}
	if err == repository.ErrUserNotFound {
		return false, nil
	}
	return false, err
}

func (r *fakeUserRepo) Update(id uint, fields map[string]any) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			s := v.(string)
			u.Name = &s
		case "email":
			s := v.(string)
			u.Email = &s
		case "role":
			u.Role = v.(domain.UserRole)
		case "is_two_factor_enabled":
			u.IsTwoFactorEnabled = v.(bool)
		case "password_hash":
			s := v.(string)
			u.PasswordHash = &s
		}
	}
	return nil
}

func (r *fakeUserRepo) MarkEmailVerified(email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.users {
		if u.Email != nil && *u.Email == email {
			now := time.Now().UTC()
			u.EmailVerifiedAt = &now
			return nil
		}
	}
	return repository.ErrUserNotFound
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	nextID uint
	tokens []domain.LoginToken

	replaceErr error
}

func newFakeTokenRepo() *fakeTokenRepo { return &fakeTokenRepo{} }

func (r *fakeTokenRepo) Replace(token *domain.LoginToken) error {
	if r.replaceErr != nil {
		return r.replaceErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.tokens[:0]
	for _, t := range r.tokens {
		if t.Email != token.Email {
			kept = append(kept, t)
		}
	}
	r.tokens = kept
	r.nextID++
	token.ID = r.nextID
	r.tokens = append(r.tokens, *token)
	return nil
}

func (r *fakeTokenRepo) FindByToken(value string) (*domain.LoginToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.Token == value {
			copied := t
			return &copied, nil
		}
	}
	return nil, repository.ErrLoginTokenNotFound
}

func (r *fakeTokenRepo) FindLatestByEmail(email string) (*domain.LoginToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]domain.LoginToken, 0, 1)
	for _, t := range r.tokens {
		if t.Email == email {
			matches = append(matches, t)
		}
	}
	if len(matches) == 0 {
		return nil, repository.ErrLoginTokenNotFound
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.After(matches[j].CreatedAt) })
	copied := matches[0]
	return &copied, nil
}

func (r *fakeTokenRepo) DeleteByEmail(email string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	kept := r.tokens[:0]
	for _, t := range r.tokens {
		if t.Email == email {
			deleted++
			continue
		}
		kept = append(kept, t)
	}
	r.tokens = kept
	return deleted, nil
}

func (r *fakeTokenRepo) count(email string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tokens {
		if t.Email == email {
			n++
		}
	}
	return n
}

type sentMail struct {
	To      string
	Subject string
	HTML    string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, html string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, HTML: html})
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *recordingMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMail{}
	}
	return m.sent[len(m.sent)-1]
}
