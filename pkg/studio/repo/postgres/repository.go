package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/content-studio/pkg/studio"
)

// DBTX is an interface that allows us to use either a connection pool or a transaction
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

// Repository implements studio.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// passthrough lists the domain errors returned unchanged from transactions.
var passthrough = []error{
	studio.ErrDocumentNotFound,
	studio.ErrRevisionConflict,
	studio.ErrAssetNotFound,
	studio.ErrReferenceNotFound,
	studio.ErrDuplicateValue,
	studio.ErrDocumentReferenced,
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	for _, target := range passthrough {
		if errors.Is(err, target) {
			return err
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			if strings.HasPrefix(pgErr.ConstraintName, "documents") {
				return studio.ErrDocumentExists
			}
			return fmt.Errorf("duplicate entry in %s", pgErr.TableName)
		case pgerrcode.ForeignKeyViolation:
			return studio.ErrDocumentNotFound
		case pgerrcode.NotNullViolation:
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case pgerrcode.UndefinedTable:
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

func (r *Repository) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Document operations

const documentColumns = "id, type, rev, content, created_at, updated_at"

func scanDocument(row pgx.Row) (*studio.Document, error) {
	var (
		doc     studio.Document
		content []byte
	)
	if err := row.Scan(&doc.ID, &doc.Type, &doc.Rev, &content, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(content, &doc.Fields); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	if doc.Fields == nil {
		doc.Fields = make(map[string]any)
	}
	doc.CreatedAt = doc.CreatedAt.UTC()
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	return &doc, nil
}

func replaceReferences(ctx context.Context, tx pgx.Tx, sourceID string, refs []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM document_references WHERE source_id = $1`, sourceID); err != nil {
		return err
	}
	if len(refs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO document_references (source_id, target_id)
		SELECT $1, t FROM unnest($2::text[]) AS t
		ON CONFLICT DO NOTHING`, sourceID, refs)
	return err
}

// lockLinks checks links inside tx. Referenced rows are locked FOR SHARE so
// a concurrent delete waits for this transaction, and each unique value is
// serialized through a transaction-scoped advisory lock.
func lockLinks(ctx context.Context, tx pgx.Tx, doc *studio.Document, links studio.Links) error {
	refs := slices.DeleteFunc(slices.Clone(links.Refs), func(id string) bool { return id == doc.ID })
	if len(refs) > 0 {
		found := make(map[string]bool, len(refs))
		for _, query := range []string{
			`SELECT id FROM documents WHERE id = ANY($1::text[]) FOR SHARE`,
			`SELECT id FROM assets WHERE id = ANY($1::text[]) FOR SHARE`,
		} {
			rows, err := tx.Query(ctx, query, refs)
			if err != nil {
				return err
			}
			ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
			if err != nil {
				return err
			}
			for _, id := range ids {
				found[id] = true
			}
		}
		for _, id := range refs {
			if !found[id] {
				return &studio.MissingReferenceError{ID: id}
			}
		}
	}

	for _, field := range slices.Sorted(maps.Keys(links.Unique)) {
		value := links.Unique[field]
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode unique value for %s: %w", field, err)
		}
		lockKey := doc.Type + "|" + field + "|" + string(encoded)
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
			return err
		}
		var holder string
		err = tx.QueryRow(ctx, `
			SELECT id FROM documents
			WHERE type = $1 AND id <> $2 AND content #> $3::text[] = $4::jsonb
			LIMIT 1`,
			doc.Type, doc.ID, studio.Path(field), string(encoded)).Scan(&holder)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return err
		}
		return &studio.DuplicateValueError{Field: field, Value: value, HeldBy: holder}
	}
	return nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
}

func referencing(ctx context.Context, q querier, targetID string) ([]string, error) {
	rows, err := q.Query(ctx, `
		SELECT source_id FROM document_references
		WHERE target_id = $1 AND source_id <> $1
		ORDER BY source_id`, targetID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// ensureUnreferenced fails with *studio.ReferencedError while another
// document points at targetID. The caller holds a row lock on the target.
func ensureUnreferenced(ctx context.Context, tx pgx.Tx, targetID string) error {
	referrers, err := referencing(ctx, tx, targetID)
	if err != nil {
		return err
	}
	if len(referrers) > 0 {
		return &studio.ReferencedError{TargetID: targetID, ReferencedBy: referrers}
	}
	return nil
}

func (r *Repository) CreateDocument(ctx context.Context, doc *studio.Document, links studio.Links) error {
	content, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc.ID, err)
	}

	err = r.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO documents (`+documentColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			doc.ID, doc.Type, doc.Rev, content, doc.CreatedAt, doc.UpdatedAt)
		if err != nil {
			return err
		}
		if err := lockLinks(ctx, tx, doc, links); err != nil {
			return err
		}
		return replaceReferences(ctx, tx, doc.ID, links.Refs)
	})
	if err != nil {
		return r.handlePostgresError("create document", err)
	}
	return nil
}

func (r *Repository) GetDocument(ctx context.Context, id string) (*studio.Document, error) {
	doc, err := scanDocument(r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, studio.ErrDocumentNotFound
	}
	if err != nil {
		return nil, r.handlePostgresError("get document", err)
	}
	return doc, nil
}

func (r *Repository) UpdateDocument(ctx context.Context, doc *studio.Document, prevRev string, links studio.Links) error {
	content, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc.ID, err)
	}

	err = r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE documents SET rev = $2, content = $3, updated_at = $4
			WHERE id = $1 AND rev = $5`,
			doc.ID, doc.Rev, content, doc.UpdatedAt, prevRev)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, doc.ID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return studio.ErrDocumentNotFound
			}
			return studio.ErrRevisionConflict
		}
		if err := lockLinks(ctx, tx, doc, links); err != nil {
			return err
		}
		return replaceReferences(ctx, tx, doc.ID, links.Refs)
	})
	if err != nil {
		return r.handlePostgresError("update document", err)
	}
	return nil
}

func (r *Repository) DeleteDocument(ctx context.Context, id string) error {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM documents WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return studio.ErrDocumentNotFound
		}
		if err != nil {
			return err
		}
		if err := ensureUnreferenced(ctx, tx, id); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return r.handlePostgresError("delete document", err)
	}
	return nil
}

var systemColumns = map[string]string{
	studio.KeyID:        "id",
	studio.KeyType:      "type",
	studio.KeyRev:       "rev",
	studio.KeyCreatedAt: "created_at",
	studio.KeyUpdatedAt: "updated_at",
}

// buildWhere renders the filter conditions. Field values compare as jsonb.
func buildWhere(filter studio.DocumentFilter) (string, []any, error) {
	conds := []string{"TRUE"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Type != "" {
		conds = append(conds, "type = "+arg(filter.Type))
	}

	keys := make([]string, 0, len(filter.Where))
	for k := range filter.Where {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		v := filter.Where[k]
		if col, ok := systemColumns[k]; ok {
			if col == "created_at" || col == "updated_at" {
				conds = append(conds, col+" = "+arg(v)+"::timestamptz")
			} else {
				conds = append(conds, col+" = "+arg(v))
			}
			continue
		}
		path := arg(studio.Path(k))
		if v == nil {
			conds = append(conds, fmt.Sprintf("(content #> %s::text[] IS NULL OR content #> %[1]s::text[] = 'null'::jsonb)", path))
			continue
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", nil, fmt.Errorf("encode filter value for %s: %w", k, err)
		}
		conds = append(conds, fmt.Sprintf("content #> %s::text[] = %s::jsonb", path, arg(string(encoded))))
	}
	return strings.Join(conds, " AND "), args, nil
}

func (r *Repository) ListDocuments(ctx context.Context, filter studio.DocumentFilter) ([]*studio.Document, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}
	where, args, err := buildWhere(filter)
	if err != nil {
		return nil, err
	}

	orderExpr, ok := systemColumns[filter.OrderBy]
	if !ok {
		args = append(args, studio.Path(filter.OrderBy))
		orderExpr = fmt.Sprintf("content #> $%d::text[]", len(args))
	}
	direction := "ASC"
	if filter.Order == studio.SortDesc {
		direction = "DESC"
	}
	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE %s ORDER BY %s %s, id %[4]s LIMIT $%d OFFSET $%d`,
		documentColumns, where, orderExpr, direction, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list documents", err)
	}
	defer rows.Close()

	docs := []*studio.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan document", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list documents", err)
	}
	return docs, nil
}

func (r *Repository) CountDocuments(ctx context.Context, filter studio.DocumentFilter) (int, error) {
	where, args, err := buildWhere(filter)
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM documents WHERE `+where, args...).Scan(&n); err != nil {
		return 0, r.handlePostgresError("count documents", err)
	}
	return n, nil
}

func (r *Repository) ListReferencing(ctx context.Context, targetID string) ([]string, error) {
	ids, err := referencing(ctx, r.db, targetID)
	if err != nil {
		return nil, r.handlePostgresError("list referencing", err)
	}
	return ids, nil
}

// Asset operations

const assetColumns = `id, type, original_filename, mime_type, extension, size, sha1_hash,
	width, height, storage_backend, object_key, created_at, updated_at`

func (r *Repository) CreateAsset(ctx context.Context, asset *studio.Asset) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO assets (`+assetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING`,
		asset.ID, asset.Type, asset.OriginalFilename, asset.MimeType, asset.Extension, asset.Size, asset.SHA1Hash,
		asset.Width, asset.Height, asset.StorageBackendName, asset.ObjectKey, asset.CreatedAt, asset.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create asset", err)
	}
	return nil
}

func (r *Repository) GetAsset(ctx context.Context, id string) (*studio.Asset, error) {
	var a studio.Asset
	err := r.db.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id).Scan(
		&a.ID, &a.Type, &a.OriginalFilename, &a.MimeType, &a.Extension, &a.Size, &a.SHA1Hash,
		&a.Width, &a.Height, &a.StorageBackendName, &a.ObjectKey, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, studio.ErrAssetNotFound
	}
	if err != nil {
		return nil, r.handlePostgresError("get asset", err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

func (r *Repository) DeleteAsset(ctx context.Context, id string) error {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM assets WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return studio.ErrAssetNotFound
		}
		if err != nil {
			return err
		}
		if err := ensureUnreferenced(ctx, tx, id); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return r.handlePostgresError("delete asset", err)
	}
	return nil
}
