// Package render formats relational algebra expressions as text.
//
// Four notations are supported, each backed by one symbol table:
//
//	unicode   σ[place="Paris"]visits
//	ascii     select[place="Paris"]visits
//	latex     \sigma_{place="Paris"}visits
//	html      &sigma;<sub>place=&#34;Paris&#34;</sub>visits
//
// Operands that are not bare relations are wrapped in the mode's
// delimiters, so the output is unambiguous without precedence rules.
// Rendering is a pure function of the expression: equal trees always
// render to equal strings.
package render
