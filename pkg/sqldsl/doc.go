// Package sqldsl provides immutable query description values for PostgreSQL.
//
// # Overview
//
// Rather than constructing SQL strings through concatenation, queries are
// composed from typed building blocks. Every expression renders its text
// with `?` placeholders and reports the values bound to them, so a
// fragment's placeholder count always equals len(Args()). Rendering to a
// concrete placeholder style ($1, $2, ...) is left to the execution layer
// (see package render).
//
// # Expression Types
//
// Basic expressions:
//
//	Col{Table: `"parcels"`, Column: "geom"}  // "parcels"."geom"
//	Bind(42)                                 // ? with value 42
//	Lit("active")                            // 'active'
//	Raw("CURRENT_TIMESTAMP")                 // raw SQL, no values
//	Fragment{Text: "x > ?", Values: ...}     // raw SQL with values
//	Call("ST_Contains", a, b)                // ST_Contains(a, b)
//
// Operators:
//
//	Eq{Left: col, Right: Bind(v)}      // col = ?
//	InArgs(col, 1, 2, 3)               // col IN (?, ?, ?)
//	And(expr1, expr2, expr3)           // (expr1 AND expr2 AND expr3)
//	Or(expr1, expr2)                   // (expr1 OR expr2)
//	Not(expr)                          // NOT (expr)
//
// A single operand And renders without parentheses; comparisons never add
// their own, so fragments compose without extra grouping.
//
// # Statements
//
//	SelectStmt{
//	    Columns: []Expr{Star{Table: `"parcels"`}},
//	    From:    TableRef{Name: `"zones"`},
//	    Joins:   []JoinClause{InnerJoin(TableRef{Name: `"parcels"`}, on)},
//	    Where:   Eq{Left: C(`"zones"`, "id"), Right: Bind(7)},
//	}
package sqldsl
