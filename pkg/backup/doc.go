/*
Package backup keeps the content a resource had before an edit session touched it.

	+-----------+   Snapshot    +-----------+
	|  Editor   +-------------->+  DirSink  |
	+-----------+               +-----+-----+
	                                  |
	                    <root>/<session>/<key>.bak
	                    <root>/<session>/<key>.json

🎯 Purpose:
- Capture prior content before a mutation is persisted
- Mark resources that did not exist as created, so rollback removes them
- Roll a whole session back into a store

🔄 Flow:
1. The editor reads a resource and computes the patched content
2. Snapshot stores the prior content (first time per session only)
3. The editor writes the new content, or calls Forget when that write fails
4. Restore replays the snapshots of a session into the store

📝 Notes:
A failed snapshot never blocks the edit. Callers log it and continue.
*/
package backup
