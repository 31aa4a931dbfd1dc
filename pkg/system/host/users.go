package host

import (
	"context"
	"sync"
	"time"

	gohost "github.com/shirou/gopsutil/v4/host"
)

// Session is a logged-in user as listed by utmp.
type Session struct {
	User     string
	Terminal string
	Host     string
	Started  time.Time
}

type Users struct {
	mu       sync.RWMutex
	sessions []Session

	users func(ctx context.Context) ([]gohost.UserStat, error)
}

func NewUsers() *Users {
	return &Users{users: gohost.UsersWithContext}
}

func (u *Users) Refresh(ctx context.Context) error {
	stats, err := u.users(ctx)
	if err != nil {
		return err
	}
	sessions := make([]Session, 0, len(stats))
	for _, s := range stats {
		sessions = append(sessions, Session{
			User:     s.User,
			Terminal: s.Terminal,
			Host:     s.Host,
			Started:  time.Unix(int64(s.Started), 0),
		})
	}
	u.mu.Lock()
	u.sessions = sessions
	u.mu.Unlock()
	return nil
}

func (u *Users) List() []Session {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]Session, len(u.sessions))
	copy(out, u.sessions)
	return out
}
