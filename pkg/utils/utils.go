// Package utils 提供 hash 等通用工具
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// SHA256Hash 计算 SHA256 哈希
func SHA256Hash(data string) string {
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// HashJSON 对 v 的 JSON 编码做 SHA256，字段顺序由结构体定义决定
func HashJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return SHA256Hash(string(data)), nil
}
