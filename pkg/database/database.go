package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"quiz-engine/config"
	"quiz-engine/internal/constants"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Client wraps a *sql.DB together with its driver so repositories can write
// queries once with '?' placeholders.
type Client struct {
	db     *sql.DB
	driver string
}

func NewPostgresClient(cfg *config.DBConfig) (*Client, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open(constants.DriverPostgres, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{db: db, driver: constants.DriverPostgres}, nil
}

func NewSQLiteClient(path string) (*Client, error) {
	if strings.TrimSpace(path) == "" {
		path = "quiz-results.db"
	}

	db, err := sql.Open(constants.DriverSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}

	return &Client{db: db, driver: constants.DriverSQLite}, nil
}

func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *Client) GetDB() *sql.DB {
	return c.db
}

func (c *Client) Driver() string {
	return c.driver
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Rebind rewrites '?' placeholders to '$n' for Postgres.
func (c *Client) Rebind(query string) string {
	return Rebind(c.driver, query)
}

func Rebind(driver, query string) string {
	if driver != constants.DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (c *Client) InitSchema(ctx context.Context) error {
	jsonType := "TEXT"
	if c.driver == constants.DriverPostgres {
		jsonType = "JSONB"
	}

	createQuestionSetsTable := `
		CREATE TABLE IF NOT EXISTS question_sets (
			id VARCHAR(255) PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`

	createQuestionsTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS questions (
			set_id VARCHAR(255) NOT NULL,
			id VARCHAR(255) NOT NULL,
			prompt TEXT NOT NULL,
			options %s NOT NULL,
			correct_answer TEXT NOT NULL,
			order_index INTEGER NOT NULL,
			PRIMARY KEY (set_id, id)
		);
		CREATE INDEX IF NOT EXISTS idx_questions_set_id ON questions(set_id, order_index);
	`, jsonType)

	createQuizResultsTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS quiz_results (
			id VARCHAR(255) PRIMARY KEY,
			session_id VARCHAR(255) NOT NULL,
			player_id VARCHAR(255) NOT NULL,
			set_id VARCHAR(255) NOT NULL,
			attempt INTEGER NOT NULL,
			score INTEGER NOT NULL,
			total INTEGER NOT NULL,
			percentage INTEGER NOT NULL,
			answers %s NOT NULL,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_quiz_results_player_id ON quiz_results(player_id, finished_at);
	`, jsonType)

	if _, err := c.db.ExecContext(ctx, createQuestionSetsTable); err != nil {
		return fmt.Errorf("failed to create question_sets table: %w", err)
	}

	if _, err := c.db.ExecContext(ctx, createQuestionsTable); err != nil {
		return fmt.Errorf("failed to create questions table: %w", err)
	}

	if _, err := c.db.ExecContext(ctx, createQuizResultsTable); err != nil {
		return fmt.Errorf("failed to create quiz_results table: %w", err)
	}

	return nil
}
