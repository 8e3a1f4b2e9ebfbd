package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/authcore/pkg/database"
	"github.com/authcore/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "session:"

// Registry 会话注册表。按会话令牌存储已认证主体，支持多个主体并发在线。
// 存储项带超时TTL，过期会话自动从注册表消失。
type Registry struct {
	rdb     *redis.Client
	timeout time.Duration
}

// NewRegistry 创建会话注册表
func NewRegistry(timeout time.Duration) *Registry {
	return NewRegistryWithClient(database.GetRedis(), timeout)
}

// NewRegistryWithClient 使用指定Redis客户端创建会话注册表
func NewRegistryWithClient(rdb *redis.Client, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Registry{
		rdb:     rdb,
		timeout: timeout,
	}
}

// Timeout 会话超时时长
func (r *Registry) Timeout() time.Duration {
	return r.timeout
}

// key 生成存储键
func (r *Registry) key(token string) string {
	return keyPrefix + token
}

// Create 为主体创建新会话并返回令牌
func (r *Registry) Create(ctx context.Context, p *Principal) (*Session, error) {
	sess := &Session{
		Token:     uuid.NewString(),
		Principal: *p,
		LoginAt:   time.Now(),
	}

	if err := r.store(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// store 序列化并写入会话
func (r *Registry) store(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return r.rdb.Set(ctx, r.key(sess.Token), data, r.timeout).Err()
}

// Get 根据令牌获取会话，不存在或已过期返回 nil, nil
func (r *Registry) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}

	data, err := r.rdb.Get(ctx, r.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// Principal 根据令牌获取当前主体，无会话时返回 nil
func (r *Registry) Principal(ctx context.Context, token string) *Principal {
	sess, err := r.Get(ctx, token)
	if err != nil {
		logger.Warn("读取会话失败", zap.Error(err))
		return nil
	}
	if sess == nil {
		return nil
	}
	return &sess.Principal
}

// Destroy 销毁会话
func (r *Registry) Destroy(ctx context.Context, token string) error {
	return r.rdb.Del(ctx, r.key(token)).Err()
}

// Refresh 重置会话的登录时钟和TTL
func (r *Registry) Refresh(ctx context.Context, token string) error {
	sess, err := r.Get(ctx, token)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	sess.LoginAt = time.Now()
	return r.store(ctx, sess)
}

// IsExpired 被动超时检查：会话不存在或已持续超过超时时长视为过期
func (r *Registry) IsExpired(ctx context.Context, token string) bool {
	sess, err := r.Get(ctx, token)
	if err != nil || sess == nil {
		return true
	}
	return sess.Duration() > r.timeout
}
