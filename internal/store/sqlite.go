package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/yourorg/integbuilder/internal/workflow"
	"github.com/yourorg/integbuilder/pkg/types"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.Init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS workflows (
			id TEXT PRIMARY KEY,
			step TEXT NOT NULL,
			doc_url TEXT NOT NULL DEFAULT '',
			auth_method TEXT NOT NULL,
			language TEXT NOT NULL,
			code TEXT NOT NULL DEFAULT '',
			demo_mode INTEGER NOT NULL DEFAULT 0,
			insights TEXT NOT NULL DEFAULT '',
			error_msg TEXT NOT NULL DEFAULT '',
			quality TEXT NOT NULL DEFAULT '',
			sandbox TEXT NOT NULL DEFAULT '',
			deployed_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS generations (
			workflow_id TEXT NOT NULL,
			attempt INTEGER NOT NULL,
			model TEXT NOT NULL,
			status TEXT NOT NULL,
			demo_mode INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			error_msg TEXT NOT NULL DEFAULT '',
			raw_output TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			PRIMARY KEY(workflow_id, attempt)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) CreateWorkflow(defaultAuth types.AuthMethod, language string) (*types.Workflow, error) {
	now := time.Now().UTC()
	w := workflow.New(uuid.NewString(), defaultAuth, language, now)
	if err := s.SaveWorkflow(&w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *SQLiteStore) SaveWorkflow(w *types.Workflow) error {
	insights, _ := json.Marshal(w.Insights)
	quality := marshalOrEmpty(w.Quality)
	sandbox := marshalOrEmpty(w.Sandbox)
	var deployedAt any
	if w.DeployedAt != nil {
		deployedAt = w.DeployedAt.UTC()
	}
	_, err := s.db.Exec(`INSERT INTO workflows(id,step,doc_url,auth_method,language,code,demo_mode,insights,error_msg,quality,sandbox,deployed_at,created_at,updated_at)
	VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	ON CONFLICT(id) DO UPDATE SET step=excluded.step,doc_url=excluded.doc_url,auth_method=excluded.auth_method,language=excluded.language,code=excluded.code,demo_mode=excluded.demo_mode,insights=excluded.insights,error_msg=excluded.error_msg,quality=excluded.quality,sandbox=excluded.sandbox,deployed_at=excluded.deployed_at,updated_at=excluded.updated_at`,
		w.ID, string(w.Step), w.DocURL, string(w.AuthMethod), w.Language, w.Code, boolToInt(w.DemoMode),
		string(insights), w.ErrorMsg, quality, sandbox, deployedAt, w.CreatedAt, w.UpdatedAt)
	return err
}

func (s *SQLiteStore) GetWorkflow(id string) (*types.Workflow, error) {
	row := s.db.QueryRow(`SELECT id,step,doc_url,auth_method,language,code,demo_mode,insights,error_msg,quality,sandbox,deployed_at,created_at,updated_at FROM workflows WHERE id=?`, id)
	return scanWorkflow(row)
}

func (s *SQLiteStore) ListWorkflows() ([]types.Workflow, error) {
	rows, err := s.db.Query(`SELECT id,step,doc_url,auth_method,language,code,demo_mode,insights,error_msg,quality,sandbox,deployed_at,created_at,updated_at FROM workflows ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]types.Workflow, 0)
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteWorkflow(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM generations WHERE workflow_id=?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM workflows WHERE id=?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveGeneration stores one attempt. A zero Attempt is assigned the next
// number for the workflow.
func (s *SQLiteStore) SaveGeneration(rec *types.GenerationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Attempt == 0 {
		row := s.db.QueryRow(`SELECT COALESCE(MAX(attempt),0)+1 FROM generations WHERE workflow_id=?`, rec.WorkflowID)
		if err := row.Scan(&rec.Attempt); err != nil {
			return err
		}
	}
	_, err := s.db.Exec(`INSERT INTO generations(workflow_id,attempt,model,status,demo_mode,duration_ms,error_msg,raw_output,created_at)
	VALUES(?,?,?,?,?,?,?,?,?)
	ON CONFLICT(workflow_id,attempt) DO UPDATE SET model=excluded.model,status=excluded.status,demo_mode=excluded.demo_mode,duration_ms=excluded.duration_ms,error_msg=excluded.error_msg,raw_output=excluded.raw_output,created_at=excluded.created_at`,
		rec.WorkflowID, rec.Attempt, rec.Model, rec.Status, boolToInt(rec.DemoMode), rec.DurationMs, rec.ErrorMsg, rec.RawOutput, rec.CreatedAt)
	return err
}

func (s *SQLiteStore) GetGenerations(workflowID string) ([]types.GenerationRecord, error) {
	rows, err := s.db.Query(`SELECT workflow_id,attempt,model,status,demo_mode,duration_ms,error_msg,raw_output,created_at FROM generations WHERE workflow_id=? ORDER BY attempt ASC`, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]types.GenerationRecord, 0)
	for rows.Next() {
		var rec types.GenerationRecord
		var demo int
		if err := rows.Scan(&rec.WorkflowID, &rec.Attempt, &rec.Model, &rec.Status, &demo, &rec.DurationMs, &rec.ErrorMsg, &rec.RawOutput, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.DemoMode = demo != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*types.Workflow, error) {
	var w types.Workflow
	var step, auth, insights, quality, sandbox string
	var demo int
	var deployedAt sql.NullTime
	if err := row.Scan(&w.ID, &step, &w.DocURL, &auth, &w.Language, &w.Code, &demo, &insights, &w.ErrorMsg, &quality, &sandbox, &deployedAt, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.Step = types.Step(step)
	w.AuthMethod = types.AuthMethod(auth)
	w.DemoMode = demo != 0
	if insights != "" && insights != "null" {
		_ = json.Unmarshal([]byte(insights), &w.Insights)
	}
	if quality != "" {
		var q types.QualityReport
		if err := json.Unmarshal([]byte(quality), &q); err == nil {
			w.Quality = &q
		}
	}
	if sandbox != "" {
		var sb types.SandboxResult
		if err := json.Unmarshal([]byte(sandbox), &sb); err == nil {
			w.Sandbox = &sb
		}
	}
	if deployedAt.Valid {
		t := deployedAt.Time
		w.DeployedAt = &t
	}
	return &w, nil
}

func marshalOrEmpty(v any) string {
	switch x := v.(type) {
	case *types.QualityReport:
		if x == nil {
			return ""
		}
	case *types.SandboxResult:
		if x == nil {
			return ""
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
