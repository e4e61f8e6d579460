// Package configs embeds the commented configuration templates written by
// 'amanchunk config init'.
//
// Templates:
//   - project-config.example.yaml: chunking and output defaults for .amanchunk.yaml
//   - user-config.example.yaml: machine settings for ~/.config/amanchunk/config.yaml
//
// Both must load to the built-in defaults (see internal/config NewConfig).
package configs

import _ "embed"

// ProjectConfigTemplate is written by `amanchunk config init`.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string

// UserConfigTemplate is written by `amanchunk config init --user`.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string
