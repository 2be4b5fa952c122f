// Package i18n 提供诊断信息和命令行文本的多语言支持
package i18n

import (
	"fmt"
	"strings"
	"sync"
)

// Language 语言类型
type Language string

const (
	LangEnglish Language = "en"
	LangChinese Language = "zh"
)

// 全局语言设置
var (
	currentLang Language = LangEnglish
	mu          sync.RWMutex
)

// SetLanguage 设置当前语言
func SetLanguage(lang Language) {
	mu.Lock()
	defer mu.Unlock()
	currentLang = lang
}

// ParseLanguage 把配置或命令行里的语言名转换为 Language，不认识的一律视为英文
func ParseLanguage(lang string) Language {
	switch strings.ToLower(lang) {
	case "zh", "zh-cn", "zh-tw", "zh-hk", "chinese":
		return LangChinese
	default:
		return LangEnglish
	}
}

// SetLanguageFromString 从字符串设置语言
func SetLanguageFromString(lang string) {
	SetLanguage(ParseLanguage(lang))
}

// GetLanguage 获取当前语言
func GetLanguage() Language {
	mu.RLock()
	defer mu.RUnlock()
	return currentLang
}

// T 翻译消息（支持格式化参数）
func T(msgID string, args ...interface{}) string {
	mu.RLock()
	lang := currentLang
	mu.RUnlock()

	var messages map[string]string
	switch lang {
	case LangChinese:
		messages = messagesZH
	default:
		messages = messagesEN
	}

	msg, ok := messages[msgID]
	if !ok {
		// 回退到英文
		if msg, ok = messagesEN[msgID]; !ok {
			return msgID
		}
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}
