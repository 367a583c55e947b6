package parser

import (
	"slices"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
	"github.com/pseudomuto/shardexec/pkg/route"
	"github.com/pseudomuto/shardexec/pkg/utils"
)

var (
	shapeLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Comment", Pattern: `(--|#)[^\r\n]*`},
		{Name: "MultilineComment", Pattern: `/\*[^*]*\*+([^/*][^*]*\*+)*/`},
		{Name: "String", Pattern: `'([^'\\]|\\.)*'`},
		{Name: "QuotedIdent", Pattern: "`[^`]*`|\"[^\"]*\""},
		{Name: "Number", Pattern: `\d+(\.\d*)?`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_$]*`},
		{Name: "Punct", Pattern: `[^\sa-zA-Z0-9_'"` + "`" + `]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	shapeParser = participle.MustBuild[shapeStatement](
		participle.Lexer(shapeLexer),
		participle.Elide("Comment", "MultilineComment", "Whitespace"),
		participle.CaseInsensitive("Ident"),
		participle.UseLookahead(4),
	)
)

type (
	// shapeStatement recognizes just enough of a statement to know its type,
	// the tables it touches and, for index DDL, the index name.
	shapeStatement struct {
		Select      *selectShape      `parser:"(   @@"`
		Insert      *insertShape      `parser:"  | @@"`
		Update      *updateShape      `parser:"  | @@"`
		Delete      *deleteShape      `parser:"  | @@"`
		CreateTable *createTableShape `parser:"  | @@"`
		CreateIndex *createIndexShape `parser:"  | @@"`
		AlterTable  *alterTableShape  `parser:"  | @@"`
		DropTable   *dropTableShape   `parser:"  | @@"`
		DropIndex   *dropIndexShape   `parser:"  | @@"`
		Truncate    *truncateShape    `parser:"  | @@"`
		Other       []string          `parser:"  | @( !';' )+ )"`
		Semicolon   bool              `parser:"@';'?"`
	}

	qualifiedName struct {
		Parts []string `parser:"@(Ident | QuotedIdent) ( '.' @(Ident | QuotedIdent) )*"`
	}

	selectShape struct {
		Tables []*qualifiedName `parser:"'SELECT' ( ( 'FROM' | 'JOIN' ) ( @@ | '(' ) | !';' )*"`
	}

	insertShape struct {
		Table *qualifiedName `parser:"( 'INSERT' | 'REPLACE' ) ( 'LOW_PRIORITY' | 'DELAYED' | 'HIGH_PRIORITY' | 'IGNORE' )* 'INTO'? @@ ( !';' )*"`
	}

	updateShape struct {
		Table *qualifiedName `parser:"'UPDATE' ( 'LOW_PRIORITY' | 'IGNORE' )* @@ ( !';' )*"`
	}

	deleteShape struct {
		Table *qualifiedName `parser:"'DELETE' ( 'LOW_PRIORITY' | 'QUICK' | 'IGNORE' )* 'FROM' @@ ( !';' )*"`
	}

	createTableShape struct {
		Table *qualifiedName `parser:"'CREATE' 'TEMPORARY'? 'TABLE' ( 'IF' 'NOT' 'EXISTS' )? @@ ( !';' )*"`
	}

	createIndexShape struct {
		Index *qualifiedName `parser:"'CREATE' ( 'UNIQUE' | 'FULLTEXT' | 'SPATIAL' )? 'INDEX' ( 'IF' 'NOT' 'EXISTS' )? @@"`
		Table *qualifiedName `parser:"'ON' @@ ( !';' )*"`
	}

	alterTableShape struct {
		Table *qualifiedName `parser:"'ALTER' 'TABLE' @@ ( !';' )*"`
	}

	dropTableShape struct {
		Tables []*qualifiedName `parser:"'DROP' 'TEMPORARY'? 'TABLE' ( 'IF' 'EXISTS' )? @@ ( ',' @@ )* ( !';' )*"`
	}

	dropIndexShape struct {
		Index *qualifiedName `parser:"'DROP' 'INDEX' ( 'IF' 'EXISTS' )? @@"`
		Table *qualifiedName `parser:"( 'ON' @@ )? ( !';' )*"`
	}

	truncateShape struct {
		Table *qualifiedName `parser:"'TRUNCATE' 'TABLE'? @@ ( !';' )*"`
	}
)

// ParseShape determines the shape of a single SQL statement: its type, the
// logical tables it touches and, for CREATE INDEX and DROP INDEX, the index
// name. It does not validate the statement beyond what is needed for that.
//
// Table names are normalized: schema qualifiers and identifier quotes are
// dropped and names are lower cased. Statements that are not recognized are
// reported as route.Other with no tables.
//
// Example:
//
//	sc, err := parser.ParseShape("SELECT * FROM t_order o JOIN t_order_item i ON o.id = i.order_id")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Println(sc.Type, sc.Tables) // select [t_order t_order_item]
func ParseShape(sql string) (*route.StatementContext, error) {
	stmt, err := shapeParser.ParseString("", strings.TrimSpace(sql))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse statement shape")
	}

	return stmt.context(), nil
}

func (s *shapeStatement) context() *route.StatementContext {
	switch {
	case s.Select != nil:
		return shapeOf(route.Select, "", s.Select.Tables...)
	case s.Insert != nil:
		return shapeOf(route.Insert, "", s.Insert.Table)
	case s.Update != nil:
		return shapeOf(route.Update, "", s.Update.Table)
	case s.Delete != nil:
		return shapeOf(route.Delete, "", s.Delete.Table)
	case s.CreateTable != nil:
		return shapeOf(route.CreateTable, "", s.CreateTable.Table)
	case s.CreateIndex != nil:
		return shapeOf(route.CreateIndex, s.CreateIndex.Index.name(), s.CreateIndex.Table)
	case s.AlterTable != nil:
		return shapeOf(route.AlterTable, "", s.AlterTable.Table)
	case s.DropTable != nil:
		return shapeOf(route.DropTable, "", s.DropTable.Tables...)
	case s.DropIndex != nil:
		return shapeOf(route.DropIndex, s.DropIndex.Index.name(), s.DropIndex.Table)
	case s.Truncate != nil:
		return shapeOf(route.TruncateTable, "", s.Truncate.Table)
	default:
		return &route.StatementContext{Type: route.Other}
	}
}

func shapeOf(typ route.StatementType, index string, names ...*qualifiedName) *route.StatementContext {
	sc := &route.StatementContext{Type: typ, Index: index}
	for _, n := range names {
		if name := n.name(); name != "" && !slices.Contains(sc.Tables, name) {
			sc.Tables = append(sc.Tables, name)
		}
	}

	return sc
}

// name returns the unqualified, normalized name.
func (n *qualifiedName) name() string {
	if n == nil || len(n.Parts) == 0 {
		return ""
	}

	return utils.NormalizeIdentifier(n.Parts[len(n.Parts)-1])
}
