package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// 单次答题时限上限（秒）
const MaxTimeLimit = 86400

// 上传源码文件的限制
const MaxSourceFileSize = 256 << 10

var AllowedSourceExtensions = []string{".c", ".cpp", ".cc", ".go", ".java", ".js", ".py", ".ts", ".rs", ".txt"}
