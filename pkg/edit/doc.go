/*
Package edit runs partial edits against a content store.

	+-----------+    +--------+    +--------+    +--------+    +---------+
	| ToolInput +--->+  Gate  +--->+  text  +--->+ backup +--->+  store  |
	| (request) |    | (ask)  |    | Apply  |    | (once) |    | (CAS)   |
	+-----------+    +--------+    +--------+    +--------+    +---------+

🎯 Purpose:
- Validate requests before any I/O
- Serialize read, compute, validate and write per key
- Enforce the expected occurrence count, never persisting on mismatch
- Snapshot prior content before every write

⚡ Errors:
Every failure wraps one of the Err* kinds. KindOf maps an error to a short
name for machine readable output. A failed backup is logged and never fails
the edit.
*/
package edit
