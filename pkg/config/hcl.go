// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package config

import (
	"context"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	// env is available to expressions, e.g. workspace = env.HOME
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envObject(),
		},
	}

	// Define HCL schema
	type hclConfig struct {
		Workspace   string `hcl:"workspace,optional"`
		Database    string `hcl:"database,optional"`
		BackupDir   string `hcl:"backup_dir,optional"`
		Session     string `hcl:"session,optional"`
		Gate        string `hcl:"gate,optional"`
		Flexible    *bool  `hcl:"flexible,optional"`
		Concurrency int    `hcl:"concurrency,optional"`
		Edits       []struct {
			FileGlob             string `hcl:"file_glob,label"`
			Old                  string `hcl:"old"`
			New                  string `hcl:"new"`
			ExpectedReplacements int    `hcl:"expected_replacements,optional"`
			Flexible             *bool  `hcl:"flexible,optional"`
		} `hcl:"edit,block"`
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	cfg := &Config{
		Workspace:   hclCfg.Workspace,
		Database:    hclCfg.Database,
		BackupDir:   hclCfg.BackupDir,
		Session:     hclCfg.Session,
		Gate:        hclCfg.Gate,
		Flexible:    hclCfg.Flexible,
		Concurrency: hclCfg.Concurrency,
	}
	for _, e := range hclCfg.Edits {
		cfg.Edits = append(cfg.Edits, Edit{
			FileGlob:             e.FileGlob,
			Old:                  e.Old,
			New:                  e.New,
			ExpectedReplacements: e.ExpectedReplacements,
			Flexible:             e.Flexible,
		})
	}

	return cfg, nil
}

func envObject() cty.Value {
	vals := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" || !hclsyntax.ValidIdentifier(k) {
			continue
		}
		vals[k] = cty.StringVal(v)
	}
	if len(vals) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(vals)
}
