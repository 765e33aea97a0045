package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// 注册自定义校验：ascii_text 限制字段为纯 ASCII 文本
// （嵌入模型只认英文，写入路径和检索路径执行同一条规则）。
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("ascii_text", func(fl validator.FieldLevel) bool {
			return asciiOnly.MatchString(fl.Field().String())
		})
	}
}
