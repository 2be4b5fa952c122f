package i18n

var messagesEN = map[string]string{
	// ========== Lexer ==========
	ErrUnexpectedChar:     "unexpected character '%c'",
	ErrUnterminatedString: "unterminated string",
	ErrNewlineInString:    "newline in string literal",
	ErrBadContinuation:    "'\\' must be followed by a newline",
	ErrInvalidHexNumber:   "invalid hex number: %s",
	ErrInvalidNumber:      "invalid number: %s",
	ErrInvalidFloat:       "invalid float number: %s",

	// ========== Parser ==========
	ErrUnexpectedToken:   "Unexpected token on line %d, column %d: '%s'",
	ErrUnexpectedIndent:  "Unexpected indentation on line %d, column %d",
	ErrUnindentMismatch:  "Unindent does not match any outer indentation level on line %d, column %d",
	ErrMissingBody:       "Missing body on line %d, column %d",
	ErrElifWithoutIf:     "'elif' without matching 'if' on line %d, column %d",
	ErrElseWithoutIf:     "'else' without matching 'if' on line %d, column %d",
	ErrExceptWithoutTry:  "'except' without matching 'try' on line %d, column %d",
	ErrFinallyWithoutTry: "'finally' without matching 'try' on line %d, column %d",
	ErrTryWithoutHandler: "'try' without 'except' or 'finally' on line %d, column %d",
	ErrClauseOrder:       "'%s' is not allowed here on line %d, column %d",
	ErrInvalidTarget:     "Cannot assign to %s on line %d, column %d",
	ErrCannotDelete:      "Cannot delete %s on line %d, column %d",
	ErrInvalidLiteral:    "Invalid literal on line %d, column %d: '%s'",
	ErrBadFString:        "Invalid f-string field on line %d, column %d: '%s'",
	ErrDefaultOrder:      "Non-default argument follows default argument on line %d, column %d",
	ErrPositionalAfterKw: "Positional argument follows keyword argument on line %d, column %d",
	ErrNestingTooDeep:    "Expression nested too deeply on line %d, column %d",

	// ========== Compiler ==========
	ErrBreakOutsideLoop:    "'break' outside loop on line %d",
	ErrContinueOutsideLoop: "'continue' outside loop on line %d",
	ErrOperandOverflow:     "%s operand %d exceeds the limit of %d on line %d",
	ErrTooManyArguments:    "too many arguments in call on line %d",
	ErrUnpackArity:         "cannot unpack %d values into %d targets on line %d",
	ErrUnsupportedNode:     "unsupported %s node on line %d",
	ErrUnpatchedJump:       "unpatched jump at instruction %d in %s",

	// ========== Hints ==========
	HintIndentation: "use the same indentation width as the enclosing block",
	HintMissingBody: "add an indented statement, or 'pass' for an empty block",
	HintChain:       "'elif'/'else' and 'except'/'finally' must follow their 'if' or 'try' at the same indentation",
	HintTarget:      "only names, attributes, subscripts and tuples/lists of them can be assigned or deleted",
	HintLoopControl: "'break' and 'continue' can only appear inside 'for' or 'while'",

	// ========== CLI ==========
	MsgUsage: `Pyra language toolchain %s

Usage: pyra <command> [options] [files...]

Commands:
  tokens   Print the token stream
  ast      Print the syntax tree
  dis      Compile and disassemble
  build    Compile to bytecode files
  check    Parse and compile without writing output
  fmt      Reformat source files
  repl     Start the interactive prompt
  init     Create pyra.toml in the current directory
  version  Print version information

Options:
  -json          JSON output for tokens/ast
  -o <dir>       Output directory for build
  -format <fmt>  Bytecode format: native | cbor
  -no-cache      Recompile every file in build
  -w             Write fmt result back to the file
  -check         Only report files fmt would change
  -deps          Also build local modules imported by the inputs
  -lang <lang>   Message language: en | zh
  -v             Verbose logging
`,
	MsgUnknownCommand: "unknown command: %s",
	MsgNoInput:        "no input files",
	MsgBuildOK:        "built %s -> %s",
	MsgCheckOK:        "%s: ok",
	MsgErrorCount:     "found %d error(s)",
	MsgUpToDate:       "%s: up to date",
	MsgInitCreated:    "created %s",
	MsgConfigExists:   "%s already exists",
	MsgFormatted:      "formatted %s",
	MsgNotFormatted:   "%s: not formatted",
	MsgReplBanner:     "Pyra %s interactive prompt. Type 'exit' to quit.",
	MsgReplBye:        "bye",
}
