package mcp

import "github.com/mark3labs/mcp-go/mcp"

const idHint = " Ids are decimal strings so provisional (negative) session ids keep full precision; plain numbers are also accepted."

var noteListToolDef = mcp.NewTool("note_list",
	mcp.WithDescription("List saved notes, newest first, with a title, length and whether a keystroke journal exists for replay."),
	mcp.WithTitleAnnotation("List Notes"),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithOpenWorldHintAnnotation(false),
	mcp.WithString("query", mcp.Description("Case-insensitive substring filter on note text")),
	mcp.WithNumber("limit", mcp.Description("Max results (default: 20, max: 100)")),
	mcp.WithNumber("offset", mcp.Description("Results to skip")),
)

var noteFetchToolDef = mcp.NewTool("note_fetch",
	mcp.WithDescription("Fetch the full text of a note by id."),
	mcp.WithTitleAnnotation("Fetch Note"),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithOpenWorldHintAnnotation(false),
	mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
)

var journalListToolDef = mcp.NewTool("journal_list",
	mcp.WithDescription("List the recorded edit operations of a note or provisional session in replay order."+idHint),
	mcp.WithTitleAnnotation("List Journal"),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithOpenWorldHintAnnotation(false),
	mcp.WithString("session_id", mcp.Required(), mcp.Description(`Note id or provisional session id as a decimal string, e.g. "12" or "-1700000000000000000"`)),
)

var journalSessionsToolDef = mcp.NewTool("journal_sessions",
	mcp.WithDescription("Summarize recorded sessions, most recent first. Provisional sessions were never committed to a note, usually because the editor crashed; recover or discard them."),
	mcp.WithTitleAnnotation("List Sessions"),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithOpenWorldHintAnnotation(false),
	mcp.WithBoolean("provisional_only", mcp.Description("Only sessions without a note")),
)

var journalPlaybackToolDef = mcp.NewTool("journal_playback",
	mcp.WithDescription("Reconstruct how a note was typed: every intermediate text with its cursor position and the delay before it, scaled by speed."+idHint),
	mcp.WithTitleAnnotation("Replay Journal"),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithOpenWorldHintAnnotation(false),
	mcp.WithString("id", mcp.Required(), mcp.Description(`Note id or provisional session id as a decimal string, e.g. "12" or "-1700000000000000000"`)),
	mcp.WithNumber("speed", mcp.Description("Playback multiplier, e.g. 0.5, 1, 2, 4 (default: configured speed)")),
)

var journalDiscardToolDef = mcp.NewTool("journal_discard",
	mcp.WithDescription("Irreversibly delete the keystroke journal of a note or provisional session. A note keeps its text but can no longer be replayed."+idHint),
	mcp.WithTitleAnnotation("Discard Journal"),
	mcp.WithReadOnlyHintAnnotation(false),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithOpenWorldHintAnnotation(false),
	mcp.WithString("session_id", mcp.Required(), mcp.Description(`Note id or provisional session id as a decimal string, e.g. "12" or "-1700000000000000000"`)),
)

var journalRecoverToolDef = mcp.NewTool("journal_recover",
	mcp.WithDescription("Save an orphaned provisional session as a new note whose text is the replayed result, keeping its journal."+idHint),
	mcp.WithTitleAnnotation("Recover Session"),
	mcp.WithReadOnlyHintAnnotation(false),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithIdempotentHintAnnotation(false),
	mcp.WithOpenWorldHintAnnotation(false),
	mcp.WithString("session_id", mcp.Required(), mcp.Description(`Provisional (negative) session id as a decimal string, e.g. "-1700000000000000000"`)),
)

var noteExportToolDef = mcp.NewTool("note_export",
	mcp.WithDescription("Export every note with its journal to a JSONL file in the exports directory."),
	mcp.WithTitleAnnotation("Export Notes"),
	mcp.WithReadOnlyHintAnnotation(false),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithIdempotentHintAnnotation(false),
	mcp.WithOpenWorldHintAnnotation(false),
	mcp.WithString("path", mcp.Description("Destination .jsonl file (default: <base>/exports/thoughts-<timestamp>.jsonl)")),
)

var noteImportToolDef = mcp.NewTool("note_import",
	mcp.WithDescription("Import notes and journals from a JSONL export. Journals that do not replay to their note's text are rejected."),
	mcp.WithTitleAnnotation("Import Notes"),
	mcp.WithReadOnlyHintAnnotation(false),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithIdempotentHintAnnotation(false),
	mcp.WithOpenWorldHintAnnotation(false),
	mcp.WithString("path", mcp.Required(), mcp.Description("Source .jsonl file")),
	mcp.WithString("mode",
		mcp.Description("On id collision: error (import nothing), skip, or renumber"),
		mcp.Enum("error", "skip", "renumber"),
	),
)
