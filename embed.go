package modernchat

import "embed"

// TemplateFS holds the HTML templates, split into layouts, pages and partials.
//
//go:embed templates/*
var TemplateFS embed.FS

// StaticFS holds the stylesheet served under /static and inlined into exported transcripts.
//
//go:embed static/*
var StaticFS embed.FS
