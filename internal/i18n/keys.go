package i18n

// 消息 ID
const (
	// ========== Lexer ==========
	ErrUnexpectedChar     = "lexer.unexpected_char"
	ErrUnterminatedString = "lexer.unterminated_string"
	ErrNewlineInString    = "lexer.newline_in_string"
	ErrBadContinuation    = "lexer.bad_continuation"
	ErrInvalidHexNumber   = "lexer.invalid_hex"
	ErrInvalidNumber      = "lexer.invalid_number"
	ErrInvalidFloat       = "lexer.invalid_float"

	// ========== Parser ==========
	ErrUnexpectedToken   = "parser.unexpected_token"
	ErrUnexpectedIndent  = "parser.unexpected_indent"
	ErrUnindentMismatch  = "parser.unindent_mismatch"
	ErrMissingBody       = "parser.missing_body"
	ErrElifWithoutIf     = "parser.elif_without_if"
	ErrElseWithoutIf     = "parser.else_without_if"
	ErrExceptWithoutTry  = "parser.except_without_try"
	ErrFinallyWithoutTry = "parser.finally_without_try"
	ErrTryWithoutHandler = "parser.try_without_handler"
	ErrClauseOrder       = "parser.clause_order"
	ErrInvalidTarget     = "parser.invalid_target"
	ErrCannotDelete      = "parser.cannot_delete"
	ErrInvalidLiteral    = "parser.invalid_literal"
	ErrBadFString        = "parser.bad_fstring"
	ErrDefaultOrder      = "parser.default_order"
	ErrPositionalAfterKw = "parser.positional_after_keyword"
	ErrNestingTooDeep    = "parser.nesting_too_deep"

	// ========== Compiler ==========
	ErrBreakOutsideLoop    = "compiler.break_outside_loop"
	ErrContinueOutsideLoop = "compiler.continue_outside_loop"
	ErrOperandOverflow     = "compiler.operand_overflow"
	ErrTooManyArguments    = "compiler.too_many_arguments"
	ErrUnpackArity         = "compiler.unpack_arity"
	ErrUnsupportedNode     = "compiler.unsupported_node"
	ErrUnpatchedJump       = "compiler.unpatched_jump"

	// ========== Hints ==========
	HintIndentation = "hint.indentation"
	HintMissingBody = "hint.missing_body"
	HintChain       = "hint.chain"
	HintTarget      = "hint.target"
	HintLoopControl = "hint.loop_control"

	// ========== CLI ==========
	MsgUsage          = "cli.usage"
	MsgUnknownCommand = "cli.unknown_command"
	MsgNoInput        = "cli.no_input"
	MsgBuildOK        = "cli.build_ok"
	MsgCheckOK        = "cli.check_ok"
	MsgErrorCount     = "cli.error_count"
	MsgUpToDate       = "cli.up_to_date"
	MsgInitCreated    = "cli.init_created"
	MsgConfigExists   = "cli.config_exists"
	MsgFormatted      = "cli.formatted"
	MsgNotFormatted   = "cli.not_formatted"
	MsgReplBanner     = "repl.banner"
	MsgReplBye        = "repl.bye"
)
