package model

import (
	"time"
)

// OperationResult 操作结果
type OperationResult string

// 操作结果取值
const (
	ResultSuccess OperationResult = "SUCCESS"
	ResultFailure OperationResult = "FAILURE"
	ResultDenied  OperationResult = "DENIED"
)

// Valid 是否为合法结果
func (r OperationResult) Valid() bool {
	switch r {
	case ResultSuccess, ResultFailure, ResultDenied:
		return true
	}
	return false
}

// AuditLog 审计日志。只允许追加，持久化后不可修改或删除。
// userId 为 0 表示匿名操作。
type AuditLog struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64           `gorm:"index:idx_audit_user" json:"userId"`
	Username      string          `gorm:"size:50" json:"username"`
	Operation     string          `gorm:"size:50;not null;index:idx_audit_operation" json:"operation"`
	Target        string          `gorm:"size:100" json:"target"`
	Detail        string          `gorm:"size:500" json:"detail"`
	Result        OperationResult `gorm:"size:20;not null" json:"result"`
	IPAddress     string          `gorm:"size:50" json:"ipAddress"`
	OperationTime time.Time       `gorm:"autoCreateTime;index:idx_audit_time" json:"operationTime"`
}

// TableName 表名
func (AuditLog) TableName() string {
	return "audit_logs"
}
