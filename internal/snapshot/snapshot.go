// Package snapshot persists compiled FunctionDef/const-pool artifacts to a
// content-hash-keyed SQLite cache, grounded on the teacher's
// internal/store.LearnedCorpusStore: a New*Store(dbPath) constructor that
// os.MkdirAll's the parent directory, opens the database, and runs a
// CREATE TABLE IF NOT EXISTS schema before handing back a usable store.
// This package uses modernc.org/sqlite rather than the teacher's
// mattn/go-sqlite3 (only the former is in this module's dependency set;
// see DESIGN.md), which changes the sql.Open driver name from "sqlite3"
// to "sqlite" but nothing else about the shape of the code.
package snapshot

import (
	"bytes"
	"crypto/sha256"
	"database/sql"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"jsvm/internal/bytecode"
	"jsvm/internal/compiler"
	"jsvm/internal/constpool"
	"jsvm/internal/enginelog"
	"jsvm/internal/value"

	_ "modernc.org/sqlite"
)

// Key is the content hash a Store is addressed by: the sha256 of the
// exact source text that was compiled, hex-encoded. Two sources that
// differ by even one byte never collide (spec: "cmd/jsvm dump-bytecode
// --cache" keys its cache on source hash).
type Key string

// KeyOf hashes source into a Key.
func KeyOf(source string) Key {
	sum := sha256.Sum256([]byte(source))
	return Key(hex.EncodeToString(sum[:]))
}

// funcDefDTO is a FunctionDef flattened for gob encoding: Chunk's bytes
// and tables copied out by value, nested function constants left to the
// const-pool entry list below rather than inlined here (a FunctionDef
// never embeds another FunctionDef directly — nested functions are
// always reached indirectly, through a separate const-pool slot that a
// Chunk's EmitConstLoad addresses by index).
type funcDefDTO struct {
	Name        string
	ParamCount  int
	LocalCount  int
	Flags       compiler.FunctionFlags
	ClosureVars []compiler.ClosureVarEntry
	Bytes       []byte
	Exception   bytecode.ExceptionTable
	Debug       bytecode.DebugTable
}

func toFuncDefDTO(fd *compiler.FunctionDef) funcDefDTO {
	return funcDefDTO{
		Name:        fd.Name,
		ParamCount:  fd.ParamCount,
		LocalCount:  fd.LocalCount,
		Flags:       fd.Flags,
		ClosureVars: fd.ClosureVars,
		Bytes:       append([]byte(nil), fd.Chunk.Bytes()...),
		Exception:   fd.Chunk.Exception,
		Debug:       fd.Chunk.Debug,
	}
}

func (d funcDefDTO) toFuncDef() *compiler.FunctionDef {
	chunk := bytecode.FromBytes(d.Bytes, d.Exception, d.Debug)
	return &compiler.FunctionDef{
		Name:        d.Name,
		ParamCount:  d.ParamCount,
		LocalCount:  d.LocalCount,
		Chunk:       chunk,
		ClosureVars: d.ClosureVars,
		Flags:       d.Flags,
	}
}

// valueDTO is one const-pool slot flattened for gob encoding. Only the
// scalar kinds and KindFunctionDef are ever produced by the compiler into
// a local pool this package snapshots; anything else round-trips as
// undefined (see toValueDTO's default case) rather than failing the whole
// snapshot over a slot nothing in this engine's compiler actually emits.
type valueDTO struct {
	Kind value.Kind
	Num  uint64
	Str  string
	Func *funcDefDTO
}

func toValueDTO(v value.Value) valueDTO {
	switch v.Kind() {
	case value.KindUndefined, value.KindNull:
		return valueDTO{Kind: v.Kind()}
	case value.KindBoolean, value.KindInt64, value.KindUint64, value.KindFloat64:
		return valueDTO{Kind: v.Kind(), Num: v.Uint64()}
	case value.KindString:
		return valueDTO{Kind: v.Kind(), Str: v.Str()}
	case value.KindFunctionDef:
		fd, ok := v.Heap().(*compiler.FunctionDef)
		if !ok {
			return valueDTO{Kind: value.KindUndefined}
		}
		dto := toFuncDefDTO(fd)
		return valueDTO{Kind: value.KindFunctionDef, Func: &dto}
	default:
		return valueDTO{Kind: value.KindUndefined}
	}
}

func (d valueDTO) toValue() value.Value {
	switch d.Kind {
	case value.KindUndefined:
		return value.Undefined()
	case value.KindNull:
		return value.Null()
	case value.KindBoolean:
		return value.Bool(d.Num != 0)
	case value.KindInt64:
		return value.Int64(int64(d.Num))
	case value.KindUint64:
		return value.Uint64(d.Num)
	case value.KindFloat64:
		return value.Float64(math.Float64frombits(d.Num))
	case value.KindString:
		return value.String(d.Str)
	case value.KindFunctionDef:
		if d.Func == nil {
			return value.Undefined()
		}
		return value.FromHeap(value.KindFunctionDef, d.Func.toFuncDef())
	default:
		return value.Undefined()
	}
}

// record is the full gob payload stored behind one Key: the script's
// entry FunctionDef plus the local pool it (and any nested function
// constants) were compiled against (spec §3.6, §3.7). Every field is a
// concrete struct or slice of one, never an interface, so this type
// needs no gob.Register call to round-trip.
type record struct {
	Entry funcDefDTO
	Pool  []valueDTO
	Name  string
}

// Snapshot is a cache record decoded back into live engine types, ready
// to hand to vm.Run without recompiling.
type Snapshot struct {
	Entry *compiler.FunctionDef
	Pool  *constpool.Local
}

// Store is the SQLite-backed cache itself, one row per source hash
// (spec: "cmd/jsvm dump-bytecode --cache").
type Store struct {
	db   *sql.DB
	path string
	log  enginelog.Logger
	mu   sync.Mutex
}

// Open creates or opens the cache database at path, creating its parent
// directory and schema as needed, mirroring the teacher's
// NewLearnedCorpusStore(dbPath, ...) shape.
func Open(path string, log enginelog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot: database path required")
	}
	if log == nil {
		log = enginelog.Noop
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("snapshot: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("snapshot: verify database connection: %w", err)
	}

	s := &Store{db: db, path: path, log: log}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("snapshot: initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS snapshots (
		source_hash TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		payload     BLOB NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create snapshots table: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores entry and pool under KeyOf(source), overwriting any prior
// snapshot for the same source text.
func (s *Store) Put(source, name string, entry *compiler.FunctionDef, pool *constpool.Local) error {
	poolEntries := pool.Entries()
	r := record{
		Entry: toFuncDefDTO(entry),
		Pool:  make([]valueDTO, len(poolEntries)),
		Name:  name,
	}
	for i, v := range poolEntries {
		r.Pool[i] = toValueDTO(v)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}

	key := KeyOf(source)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO snapshots (source_hash, name, payload) VALUES (?, ?, ?)
		 ON CONFLICT(source_hash) DO UPDATE SET name=excluded.name, payload=excluded.payload, created_at=CURRENT_TIMESTAMP`,
		string(key), name, buf.Bytes(),
	)
	if err != nil {
		return fmt.Errorf("snapshot: insert: %w", err)
	}
	s.log.Debug("snapshot: cached %s (%d bytes)", name, buf.Len())
	return nil
}

// Get looks up the snapshot cached for source, reporting ok=false on a
// cache miss rather than an error — a miss is the expected, common path
// for source the cache hasn't seen yet.
func (s *Store) Get(source string) (snap Snapshot, ok bool, err error) {
	key := KeyOf(source)

	s.mu.Lock()
	row := s.db.QueryRow(`SELECT payload FROM snapshots WHERE source_hash = ?`, string(key))
	var payload []byte
	scanErr := row.Scan(&payload)
	s.mu.Unlock()

	if scanErr == sql.ErrNoRows {
		return Snapshot{}, false, nil
	}
	if scanErr != nil {
		return Snapshot{}, false, fmt.Errorf("snapshot: query: %w", scanErr)
	}

	var r record
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&r); err != nil {
		return Snapshot{}, false, fmt.Errorf("snapshot: decode: %w", err)
	}

	pool := make([]value.Value, len(r.Pool))
	for i, dto := range r.Pool {
		pool[i] = dto.toValue()
	}

	return Snapshot{
		Entry: r.Entry.toFuncDef(),
		Pool:  constpool.NewLocalFromEntries(pool),
	}, true, nil
}

// Invalidate removes any cached snapshot for source, for a caller (e.g. a
// watch-mode CLI) that knows a previously cached source is stale without
// needing a fresh hash-miss to discover it on the next Get.
func (s *Store) Invalidate(source string) error {
	key := KeyOf(source)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM snapshots WHERE source_hash = ?`, string(key)); err != nil {
		return fmt.Errorf("snapshot: delete: %w", err)
	}
	return nil
}
