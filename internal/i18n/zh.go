package i18n

var messagesZH = map[string]string{
	// ========== 词法 ==========
	ErrUnexpectedChar:     "意外字符 '%c'",
	ErrUnterminatedString: "未闭合的字符串",
	ErrNewlineInString:    "字符串中出现换行",
	ErrBadContinuation:    "'\\' 后面必须紧跟换行",
	ErrInvalidHexNumber:   "无效的十六进制数: %s",
	ErrInvalidNumber:      "无效的数字: %s",
	ErrInvalidFloat:       "无效的浮点数: %s",

	// ========== 语法 ==========
	ErrUnexpectedToken:   "第 %d 行第 %d 列出现意外的 token: '%s'",
	ErrUnexpectedIndent:  "第 %d 行第 %d 列缩进不正确",
	ErrUnindentMismatch:  "第 %d 行第 %d 列的取消缩进与外层缩进不匹配",
	ErrMissingBody:       "第 %d 行第 %d 列缺少语句体",
	ErrElifWithoutIf:     "第 %d 行第 %d 列的 'elif' 没有对应的 'if'",
	ErrElseWithoutIf:     "第 %d 行第 %d 列的 'else' 没有对应的 'if'",
	ErrExceptWithoutTry:  "第 %d 行第 %d 列的 'except' 没有对应的 'try'",
	ErrFinallyWithoutTry: "第 %d 行第 %d 列的 'finally' 没有对应的 'try'",
	ErrTryWithoutHandler: "第 %d 行第 %d 列的 'try' 缺少 'except' 或 'finally'",
	ErrClauseOrder:       "'%s' 不能出现在第 %d 行第 %d 列",
	ErrInvalidTarget:     "不能给 %s 赋值（第 %d 行第 %d 列）",
	ErrCannotDelete:      "不能删除 %s（第 %d 行第 %d 列）",
	ErrInvalidLiteral:    "第 %d 行第 %d 列的字面量无效: '%s'",
	ErrBadFString:        "第 %d 行第 %d 列的 f-string 字段无效: '%s'",
	ErrDefaultOrder:      "第 %d 行第 %d 列：无默认值的参数不能跟在有默认值的参数之后",
	ErrPositionalAfterKw: "第 %d 行第 %d 列：位置参数不能跟在关键字参数之后",
	ErrNestingTooDeep:    "第 %d 行第 %d 列：表达式嵌套过深",

	// ========== 编译 ==========
	ErrBreakOutsideLoop:    "第 %d 行的 'break' 不在循环内",
	ErrContinueOutsideLoop: "第 %d 行的 'continue' 不在循环内",
	ErrOperandOverflow:     "%s 操作数 %d 超过上限 %d（第 %d 行）",
	ErrTooManyArguments:    "第 %d 行的调用参数过多",
	ErrUnpackArity:         "无法把 %d 个值解包到 %d 个目标（第 %d 行）",
	ErrUnsupportedNode:     "不支持的 %s 节点（第 %d 行）",
	ErrUnpatchedJump:       "%[2]s 中第 %[1]d 条指令的跳转未回填",

	// ========== 修复建议 ==========
	HintIndentation: "使用与所在代码块相同的缩进宽度",
	HintMissingBody: "添加一条缩进的语句，空代码块可以写 'pass'",
	HintChain:       "'elif'/'else' 和 'except'/'finally' 必须与对应的 'if'/'try' 处于同一缩进",
	HintTarget:      "只能对名字、属性、下标以及由它们组成的元组/列表赋值或删除",
	HintLoopControl: "'break' 和 'continue' 只能出现在 'for' 或 'while' 中",

	// ========== 命令行 ==========
	MsgUsage: `Pyra 语言工具链 %s

用法: pyra <命令> [选项] [文件...]

命令:
  tokens   输出 token 流
  ast      输出语法树
  dis      编译并反汇编
  build    编译为字节码文件
  check    只解析和编译，不写输出
  fmt      格式化源文件
  repl     启动交互式环境
  init     在当前目录创建 pyra.toml
  version  显示版本信息

选项:
  -json          tokens/ast 以 JSON 输出
  -o <目录>      build 的输出目录
  -format <格式> 字节码格式: native | cbor
  -no-cache      build 时重新编译所有文件
  -w             fmt 结果写回文件
  -check         只列出 fmt 会修改的文件
  -deps          同时编译输入文件导入的本地模块
  -lang <语言>   提示语言: en | zh
  -v             输出详细日志
`,
	MsgUnknownCommand: "未知命令: %s",
	MsgNoInput:        "没有输入文件",
	MsgBuildOK:        "已编译 %s -> %s",
	MsgCheckOK:        "%s: 通过",
	MsgErrorCount:     "发现 %d 个错误",
	MsgUpToDate:       "%s: 无需重新编译",
	MsgInitCreated:    "已创建 %s",
	MsgConfigExists:   "%s 已存在",
	MsgFormatted:      "已格式化 %s",
	MsgNotFormatted:   "%s: 格式不规范",
	MsgReplBanner:     "Pyra %s 交互式环境，输入 'exit' 退出。",
	MsgReplBye:        "再见",
}
