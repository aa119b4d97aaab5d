package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"shipload/internal/store"
)

type tableDump map[string][]map[string]interface{}

type summary struct {
	ExportedAt string         `yaml:"exported_at"`
	Format     string         `yaml:"format"`
	Tables     map[string]int `yaml:"tables"`
}

// Perform dumps the five loaded tables to the export directory in the given
// format ("json" or "csv") and writes a YAML summary next to the dump.
// Returns the path of the main artifact.
func Perform(ctx context.Context, st *store.Store, exportPath, format string) (string, error) {
	data := make(tableDump, len(store.Tables))
	counts := make(map[string]int, len(store.Tables))
	for _, table := range store.Tables {
		rows, err := tableData(ctx, st, table)
		if err != nil {
			return "", fmt.Errorf("failed to get data for table %s: %w", table, err)
		}
		data[table] = rows
		counts[table] = len(rows)
	}

	if err := os.MkdirAll(exportPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")

	var artifact string
	var err error
	switch format {
	case "csv":
		artifact, err = exportToCSV(data, exportPath, timestamp)
	case "json", "":
		format = "json"
		artifact, err = exportToJSON(data, exportPath, timestamp)
	default:
		return "", fmt.Errorf("unsupported export format: %s", format)
	}
	if err != nil {
		return "", err
	}

	sum := summary{
		ExportedAt: time.Now().Format("2006-01-02 15:04:05"),
		Format:     format,
		Tables:     counts,
	}
	yamlData, err := yaml.Marshal(sum)
	if err != nil {
		return "", fmt.Errorf("failed to marshal export summary: %w", err)
	}
	summaryPath := filepath.Join(exportPath, fmt.Sprintf("summary_%s.yaml", timestamp))
	if err := os.WriteFile(summaryPath, yamlData, 0644); err != nil {
		return "", fmt.Errorf("failed to write export summary: %w", err)
	}

	return artifact, nil
}

func tableData(ctx context.Context, st *store.Store, table string) ([]map[string]interface{}, error) {
	query, args, err := st.Builder().Select("*").From(table).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := st.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

func exportToJSON(data tableDump, exportPath, timestamp string) (string, error) {
	filePath := filepath.Join(exportPath, fmt.Sprintf("export_%s.json", timestamp))

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal data: %w", err)
	}
	if err := os.WriteFile(filePath, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return filePath, nil
}

func exportToCSV(data tableDump, exportPath, timestamp string) (string, error) {
	dirPath := filepath.Join(exportPath, fmt.Sprintf("export_%s_csv", timestamp))
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create CSV directory: %w", err)
	}

	for tableName, rows := range data {
		if len(rows) == 0 {
			continue
		}

		filePath := filepath.Join(dirPath, fmt.Sprintf("%s.csv", tableName))
		file, err := os.Create(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to create CSV file for %s: %w", tableName, err)
		}

		writer := csv.NewWriter(file)

		// Sort headers for consistent ordering
		headers := make([]string, 0, len(rows[0]))
		for key := range rows[0] {
			headers = append(headers, key)
		}
		sort.Strings(headers)

		writer.Write(headers)
		for _, row := range rows {
			values := make([]string, len(headers))
			for i, header := range headers {
				values[i] = fmt.Sprintf("%v", row[header])
			}
			writer.Write(values)
		}

		writer.Flush()
		file.Close()
		if err := writer.Error(); err != nil {
			return "", fmt.Errorf("failed to write CSV for %s: %w", tableName, err)
		}
	}

	return dirPath, nil
}
