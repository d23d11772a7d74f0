// Package migrations holds the embedded database migrations.
//
// Core contains goose migrations for the platform tables (users, refresh
// tokens and the graph ledger). The app namespaces are described by Apps as
// an explicit dependency graph resolved by package schema.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"

	"github.com/sgics/sgics/internal/server/schema"
)

//go:embed core/*.sql
var Core embed.FS

// CoreDir is the directory of Core that goose reads.
const CoreDir = "core"

//go:embed apps
var appFiles embed.FS

// entry is one line of the registration list. Schema entries take their SQL
// from apps/<app>/<name>.sql.
type entry struct {
	app  string
	name string
	kind schema.Kind
	deps []schema.Key
	note string
}

var dep = schema.Dep

var catalogue = []entry{
	{app: "personas", name: "0001_initial", kind: schema.KindSchema},
	{app: "personas", name: "0002_persona_usuario", kind: schema.KindSchema,
		deps: []schema.Key{dep("personas", "0001_initial")}},

	{app: "cursos", name: "0001_initial", kind: schema.KindSchema},
	{app: "cursos", name: "0002_inscripcion", kind: schema.KindSchema,
		deps: []schema.Key{dep("cursos", "0001_initial"), dep("personas", "0001_initial")}},

	{app: "archivos", name: "0001_initial", kind: schema.KindSchema},

	{app: "proveedores", name: "0001_initial", kind: schema.KindSchema},

	{app: "pagos", name: "0001_initial", kind: schema.KindSchema,
		deps: []schema.Key{dep("personas", "0001_initial"), dep("cursos", "0002_inscripcion")}},
	{app: "pagos", name: "0002_comprobantepago", kind: schema.KindSchema,
		deps: []schema.Key{dep("pagos", "0001_initial"), dep("archivos", "0001_initial")}},
	{app: "pagos", name: "0003_pagolegacy", kind: schema.KindSchema,
		deps: []schema.Key{dep("pagos", "0002_comprobantepago")}},
	{app: "pagos", name: "0004_pago_legacy", kind: schema.KindPlaceholder,
		deps: []schema.Key{dep("pagos", "0003_pagolegacy")},
		note: "patched: referenced by 0005 before its content existed; see DESIGN.md on divergent 0004"},
	{app: "pagos", name: "0005_pago_estado", kind: schema.KindSchema,
		deps: []schema.Key{dep("pagos", "0004_pago_legacy")}},
	{app: "pagos", name: "0006_comprobante_monto", kind: schema.KindSchema,
		deps: []schema.Key{dep("pagos", "0005_pago_estado")}},
	{app: "pagos", name: "0007_pago_proveedor", kind: schema.KindSchema,
		deps: []schema.Key{dep("pagos", "0005_pago_estado"), dep("proveedores", "0001_initial")}},
	{app: "pagos", name: "0008_merge", kind: schema.KindMerge,
		deps: []schema.Key{dep("pagos", "0006_comprobante_monto"), dep("pagos", "0007_pago_proveedor")}},
	{app: "pagos", name: "0009_remove_pagolegacy", kind: schema.KindDeferred,
		deps: []schema.Key{dep("pagos", "0008_merge")},
		note: "DROP TABLE pagos_pagolegacy (after legacy rows are reconciled)"},
}

// Apps returns the app migrations in registration order. The result is not
// validated; pass it to schema.Resolve.
func Apps() ([]schema.Migration, error) {
	return load(appFiles, catalogue)
}

func load(fsys fs.FS, entries []entry) ([]schema.Migration, error) {
	out := make([]schema.Migration, 0, len(entries))
	for _, e := range entries {
		switch e.kind {
		case schema.KindSchema:
			ops, err := readOperations(fsys, e.app, e.name)
			if err != nil {
				return nil, err
			}
			out = append(out, schema.NewSchema(e.app, e.name, e.deps, ops...))
		case schema.KindMerge:
			out = append(out, schema.NewMerge(e.app, e.name, e.deps...))
		case schema.KindPlaceholder:
			out = append(out, schema.NewPlaceholder(e.app, e.name, e.note, e.deps...))
		case schema.KindDeferred:
			out = append(out, schema.NewDeferred(e.app, e.name, e.note, e.deps...))
		default:
			return nil, fmt.Errorf("%s/%s: unsupported kind %s", e.app, e.name, e.kind)
		}
	}
	return out, nil
}

func readOperations(fsys fs.FS, app, name string) ([]schema.Operation, error) {
	file := path.Join("apps", app, name+".sql")
	content, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration file %s: %w", file, err)
	}
	ops, err := splitStatements(string(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return ops, nil
}

// splitStatements turns a SQL script into one operation per statement.
// Statements end at ';' and "--" comments are dropped, except inside
// single-quoted literals and double-quoted identifiers. Dollar-quoted
// bodies are rejected; write such statements as single-quoted literals.
func splitStatements(script string) ([]schema.Operation, error) {
	var (
		ops   []schema.Operation
		stmt  strings.Builder
		quote byte
	)
	flush := func() {
		sql := tidyLines(stmt.String())
		stmt.Reset()
		if sql != "" {
			ops = append(ops, schema.Operation{Description: describe(sql), SQL: sql})
		}
	}
	for i := 0; i < len(script); i++ {
		ch := script[i]
		switch {
		case quote != 0:
			stmt.WriteByte(ch)
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
			stmt.WriteByte(ch)
		case ch == '-' && i+1 < len(script) && script[i+1] == '-':
			for i+1 < len(script) && script[i+1] != '\n' {
				i++
			}
		case ch == '$' && dollarTag.MatchString(script[i:]):
			return nil, fmt.Errorf("dollar-quoted body at offset %d is not supported", i)
		case ch == ';':
			flush()
		default:
			stmt.WriteByte(ch)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	flush()
	return ops, nil
}

var dollarTag = regexp.MustCompile(`^\$[A-Za-z_]*\$`)

// tidyLines trims every line and drops the blank ones.
func tidyLines(sql string) string {
	lines := strings.Split(sql, "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}

// describe shortens a statement to its first line, e.g. "CREATE TABLE pagos_pago (".
func describe(stmt string) string {
	first, _, _ := strings.Cut(stmt, "\n")
	const max = 72
	if len(first) > max {
		first = first[:max] + "..."
	}
	return first
}
