package model

// 权限码目录。引导初始化时写入权限表，服务层据此设置操作门禁。
const (
	PermUserView          = "USER_VIEW"
	PermUserCreate        = "USER_CREATE"
	PermUserUpdate        = "USER_UPDATE"
	PermUserDelete        = "USER_DELETE"
	PermUserLock          = "USER_LOCK"
	PermUserResetPassword = "USER_RESET_PASSWORD"
	PermUserAssignRole    = "USER_ASSIGN_ROLE"
	PermUserRemoveRole    = "USER_REMOVE_ROLE"

	PermRoleView             = "ROLE_VIEW"
	PermRoleCreate           = "ROLE_CREATE"
	PermRoleUpdate           = "ROLE_UPDATE"
	PermRoleDelete           = "ROLE_DELETE"
	PermRoleAssignPermission = "ROLE_ASSIGN_PERMISSION"
	PermRoleRemovePermission = "ROLE_REMOVE_PERMISSION"

	PermPermissionView   = "PERMISSION_VIEW"
	PermPermissionCreate = "PERMISSION_CREATE"
	PermPermissionUpdate = "PERMISSION_UPDATE"
	PermPermissionDelete = "PERMISSION_DELETE"

	PermAuditView   = "AUDIT_VIEW"
	PermAuditExport = "AUDIT_EXPORT"
)
