package tryonRepository

import (
	"PerfectFit/internal/entity"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
}

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var sqlExecutor SQLExecutor
	var commitFunc, rollbackFunc func() error

	sqlExecutor = r.DB

	if tx {
		var err error
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		sqlExecutor = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		Frame:    &frameRepository{q: sqlExecutor, log: r.log},
		Commit:   commitFunc,
		Rollback: rollbackFunc,
	}, nil
}

// FrameReader is the read-only frame catalog.
type FrameReader interface {
	ListFrames(ctx context.Context) ([]entity.GlassesFrame, error)
	GetFrameByID(ctx context.Context, id string) (entity.GlassesFrame, error)
}

type Client struct {
	Frame FrameReader

	Commit   func() error
	Rollback func() error
}

type frameRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}

// Validate loads the whole catalog once so that a frame without calibration
// fails startup instead of a request.
func Validate(ctx context.Context, repo Repository) (int, error) {
	client, err := repo.NewClient(false)
	if err != nil {
		return 0, err
	}

	frames, err := client.Frame.ListFrames(ctx)
	if err != nil {
		return 0, err
	}
	return len(frames), nil
}
