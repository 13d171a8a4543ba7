/*
Package config manages configuration parsing and validation for partialedit.

	            +-------------+
	            |   Config    |
	            | (Settings)  |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   YAML   | |   HCL    | |   JSON   |
	|  Parser  | |  Parser  | |  Parser  |
	+----------+ +----------+ +----------+

🎯 Purpose:
- Locates .partialedit.{yaml,yml,hcl,json} in the workspace
- Parses it with the parser registered for its extension
- Fills in defaults for the workspace, backup dir, database and gate
- Describes the batch edits run by `partialedit apply`

🔄 Flow:
1. Find looks for a config file in a directory
2. Load reads it and picks a parser with GetParser
3. Validate checks every edit and sets defaults
4. SetWorkspace moves a loaded config when a flag names another workspace
5. Callers use Config directly

📝 Design Philosophy:
A missing config file is not an error. Every setting has a default so the
CLI works in a bare directory, and flags override what the file says.

🔍 Example:

	cfg, err := config.LoadOrDefault(ctx, "", workspace)
	if err != nil {
		return err
	}
	for _, e := range cfg.Edits {
		rule := e.Rule(cfg.FlexibleEnabled())
		...
	}
*/
package config
