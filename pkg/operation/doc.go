/*
Package operation applies the batch edits listed in a config file.

	+-------------+
	|   Config    |
	|  (edits:)   |
	+------+------+
	       |
	+------+------+
	|    Plan     |
	| (globs ->   |
	|  files)     |
	+------+------+
	       |
	+------+------+
	|   Runner    |
	| (MultiEdit  |
	|  per file)  |
	+-------------+

🎯 Purpose:
- Expands every edit's file_glob into files of the workspace
- Groups the rules of each file in config order
- Runs one all-or-nothing multi edit per file, in order or concurrently
- Collects a Report with the outcome or error kind of every file

🔄 Flow:
1. Plan matches globs through the filesystem store
2. Apply hands one operation per file to the runner
3. Each operation calls edit.Editor.MultiEdit and records the result
4. The report says which files failed and why

📝 Design Philosophy:
A failing file never stops the others. Only cancellation ends the run early.
Files are distinct keys, so concurrent operations never touch the same file,
and the editor's per-key lock covers anything else running alongside.

🔍 Example:

	app, err := operation.New(operation.Options{Config: cfg, Editor: ed, Matcher: fs})
	report, err := app.Apply(ctx)
	if err := report.Err(); err != nil {
		...
	}
*/
package operation
