// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package envfile

import "sort"

// Keys read or written by the manager.
const (
	BackupServiceEnabled      = "BACKUP_SERVICE_ENABLED"
	BackupTelegramBotKey      = "BACKUP_TELEGRAM_BOT_KEY"
	BackupTelegramChatID      = "BACKUP_TELEGRAM_CHAT_ID"
	BackupCronSchedule        = "BACKUP_CRON_SCHEDULE"
	BackupEncryptionPassword  = "BACKUP_ENCRYPTION_PASSWORD"
	BackupKeep                = "BACKUP_KEEP"
	MySQLRootPassword         = "MYSQL_ROOT_PASSWORD"
	MySQLDatabase             = "MYSQL_DATABASE"
	MySQLUser                 = "MYSQL_USER"
	MySQLPassword             = "MYSQL_PASSWORD"
	SQLAlchemyDatabaseURL     = "SQLALCHEMY_DATABASE_URL"
	XrayJSON                  = "XRAY_JSON"
	XrayExecutablePath        = "XRAY_EXECUTABLE_PATH"
	XrayAssetsPath            = "XRAY_ASSETS_PATH"
	UvicornPort               = "UVICORN_PORT"
	UvicornHost               = "UVICORN_HOST"
	UvicornSSLCertFile        = "UVICORN_SSL_CERTFILE"
	UvicornSSLKeyFile         = "UVICORN_SSL_KEYFILE"
	XraySubscriptionURLPrefix = "XRAY_SUBSCRIPTION_URL_PREFIX"
)

// BackupServiceKeys are rewritten together by the backup scheduler.
var BackupServiceKeys = []string{
	BackupServiceEnabled,
	BackupTelegramBotKey,
	BackupTelegramChatID,
	BackupCronSchedule,
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
