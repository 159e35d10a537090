package blackbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/yaml.v3"
)

// Session is one recorded flight.
type Session struct {
	ID        int64
	StartTime time.Time
	Vehicle   string
	Config    *string
}

// SqliteStore keeps sessions and control frames in a SQLite file.
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore returns a store for the database at dbPath. The file is created on first write.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}
		// one writer, serialized by the driver
		db.SetMaxOpenConns(1)

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// CreateSession starts a new session. A non-nil config is stored as YAML.
func (s *SqliteStore) CreateSession(ctx context.Context, vehicle string, config any) (sessionID int64, err error) {
	var configData sql.NullString
	if config != nil {
		var p []byte
		if p, err = yaml.Marshal(config); err != nil {
			err = fmt.Errorf("marshaling config: %w", err)
			return
		}
		configData.Valid = true
		configData.String = string(p)
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, vehicle, configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

// Session returns the session with the given id.
func (s *SqliteStore) Session(ctx context.Context, id int64) (session *Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var sess Session
	var config sql.NullString
	if err = stmt.QueryRowContext(ctx, id).Scan(&sess.ID, &sess.StartTime, &sess.Vehicle, &config); err != nil {
		err = fmt.Errorf("scanning session: %w", err)
		return
	}
	if config.Valid {
		sess.Config = &config.String
	}

	return &sess, nil
}

// StoreFrames inserts records in a single transaction.
func (s *SqliteStore) StoreFrames(ctx context.Context, sessionID int64, records []Record) (err error) {
	if len(records) == 0 {
		return nil
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	values := make([]any, 0, len(records)*frameColumns)

	var sb strings.Builder
	sb.WriteString(insertFrameSQL)

	for i, r := range records {
		values = append(values,
			sessionID,
			int64(r.Cycle),
			r.Timestamp.UTC(),
			r.Mode,
			r.DT,
			r.Roll,
			r.Pitch,
			r.X,
			r.Y,
			r.Z,
			r.Twist,
			r.Aux,
			r.FailedIMU,
			r.FailedRadio,
			r.Duties[0],
			r.Duties[1],
			r.Duties[2],
			r.Duties[3],
		)

		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(frameValuesPlaceholder)
	}

	if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
		return fmt.Errorf("batch inserting frames: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Frames returns every frame of a session in insertion order.
func (s *SqliteStore) Frames(ctx context.Context, sessionID int64) (records []Record, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectFramesSQL, sessionID)
	if err != nil {
		err = fmt.Errorf("querying frames: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var r Record
		var cycle int64
		if err = rows.Scan(
			&cycle,
			&r.Timestamp,
			&r.Mode,
			&r.DT,
			&r.Roll,
			&r.Pitch,
			&r.X,
			&r.Y,
			&r.Z,
			&r.Twist,
			&r.Aux,
			&r.FailedIMU,
			&r.FailedRadio,
			&r.Duties[0],
			&r.Duties[1],
			&r.Duties[2],
			&r.Duties[3],
		); err != nil {
			err = fmt.Errorf("scanning frame: %w", err)
			return
		}
		r.Cycle = uint64(cycle)
		records = append(records, r)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("reading frames: %w", err)
	}
	return
}

// Size returns the size of the database file in bytes.
func (s *SqliteStore) Size() (int64, error) {
	fi, err := os.Stat(s.dbPath)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Close builds the indexes and closes both connections.
func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}
