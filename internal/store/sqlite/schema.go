package sqlite

const (
	TableThoughts = "thoughts"
	TableAppInfo  = "app_info"
	TableUsers    = "users"

	IndexThoughtsCreatedAt   = "idx_thoughts_created_at"
	IndexThoughtsUserCreated = "idx_thoughts_user_created"
)

// RequiredTables and RequiredIndexes must all exist after initialization.
var (
	RequiredTables  = []string{TableThoughts, TableAppInfo, TableUsers}
	RequiredIndexes = []string{IndexThoughtsCreatedAt, IndexThoughtsUserCreated}
)

// coreTables are applied in order; none of them alter an existing table.
var coreTables = []string{
	`CREATE TABLE IF NOT EXISTS thoughts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL,
    thought_text TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS app_info (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    key TEXT UNIQUE NOT NULL,
    value TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    email TEXT UNIQUE NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`,
}

// coreIndexes normalize created_at with datetime() so text and numeric
// timestamps sort together.
var coreIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_thoughts_created_at
    ON thoughts (datetime(created_at))`,
	`CREATE INDEX IF NOT EXISTS idx_thoughts_user_created
    ON thoughts (username, datetime(created_at))`,
}
