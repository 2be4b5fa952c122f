//go:build !windows

package main

// detectChineseOS 检查语言环境变量
func detectChineseOS() bool {
	return envLocaleChinese()
}
