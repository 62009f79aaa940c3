package sql

import (
	"embed"
)

// Migrations holds the DDL applied in filename order.
//
//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed queries/register_file.sql
var RegisterFile string

//go:embed queries/lookup_file.sql
var LookupFile string

//go:embed queries/update_file_status.sql
var UpdateFileStatus string

//go:embed queries/list_files.sql
var ListFiles string

//go:embed queries/delete_batch.sql
var DeleteBatch string

//go:embed queries/delete_file_rows.sql
var DeleteFileRows string

//go:embed queries/refresh_summaries.sql
var RefreshSummaries string
