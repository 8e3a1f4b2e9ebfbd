package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"
	"unicode"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength = 16
	iterations = 10000
	keyLength  = 32
)

// GenerateSalt 生成随机盐值
func GenerateSalt() (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}

// hash 使用PBKDF2-SHA256计算摘要
func hash(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, keyLength, sha256.New)
	return base64.StdEncoding.EncodeToString(key)
}

// Encrypt 加密密码，存储格式为 salt$hash
func Encrypt(password string) (string, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return "", err
	}
	return salt + "$" + hash(password, salt), nil
}

// Verify 验证密码与存储的 salt$hash 是否匹配
func Verify(password, stored string) bool {
	parts := strings.SplitN(stored, "$", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return false
	}
	computed := hash(password, parts[0])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(parts[1])) == 1
}

// ValidatePolicy 验证密码策略：至少8个字符，包含大小写字母和数字
func ValidatePolicy(password string) bool {
	if len(password) < 8 {
		return false
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit
}

// Strength 计算密码强度级别 (0-4)
func Strength(password string) int {
	if len(password) < 6 {
		return 0
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	strength := 0
	if len(password) >= 8 {
		strength++
	}
	for _, ok := range []bool{hasUpper, hasLower, hasDigit, hasSpecial} {
		if ok {
			strength++
		}
	}
	if strength > 4 {
		strength = 4
	}
	return strength
}
