//
// Copyright 2016 Gregory Trubetskoy. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package source

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/rrdview/rrdview/rrd"
)

// PgArchives loads RRD snapshots out of PostgreSQL. The expected
// (read-only) schema, with a configurable table name prefix:
//
//	<prefix>file (name TEXT PRIMARY KEY, last_update BIGINT, step_s BIGINT)
//	<prefix>ds   (file TEXT, pos INT, name TEXT)
//	<prefix>rra  (file TEXT, pos INT, cf TEXT, step_s BIGINT, size INT)
//	<prefix>ts   (file TEXT, rra_pos INT, ds_pos INT, dp FLOAT8[])
//
// dp holds one value per row, oldest first, NULL/'NaN' for unknown.
// rra rows are expected in ascending span order by pos; this is the
// same archive-ordering precondition the resolver relies on.
type PgArchives struct {
	dbConn *sql.DB
	prefix string

	sqlFile *sql.Stmt
	sqlDs   *sql.Stmt
	sqlRra  *sql.Stmt
	sqlTs   *sql.Stmt
}

// InitPg connects and prepares the statements.
func InitPg(connectString, prefix string) (*PgArchives, error) {
	dbConn, err := sql.Open("postgres", connectString)
	if err != nil {
		return nil, err
	}
	p := &PgArchives{dbConn: dbConn, prefix: prefix}
	if err := p.prepareSqlStatements(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PgArchives) prepareSqlStatements() error {
	var err error
	if p.sqlFile, err = p.dbConn.Prepare(fmt.Sprintf(
		"SELECT last_update, step_s FROM %[1]sfile WHERE name = $1", p.prefix)); err != nil {
		return err
	}
	if p.sqlDs, err = p.dbConn.Prepare(fmt.Sprintf(
		"SELECT name FROM %[1]sds WHERE file = $1 ORDER BY pos", p.prefix)); err != nil {
		return err
	}
	if p.sqlRra, err = p.dbConn.Prepare(fmt.Sprintf(
		"SELECT pos, cf, step_s, size FROM %[1]srra WHERE file = $1 ORDER BY pos", p.prefix)); err != nil {
		return err
	}
	if p.sqlTs, err = p.dbConn.Prepare(fmt.Sprintf(
		"SELECT ds_pos, dp FROM %[1]sts WHERE file = $1 AND rra_pos = $2", p.prefix)); err != nil {
		return err
	}
	return nil
}

// Close releases the database connection.
func (p *PgArchives) Close() error { return p.dbConn.Close() }

// LoadFile builds an rrd.File snapshot for the named file.
func (p *PgArchives) LoadFile(name string) (*rrd.File, error) {
	var lastUpdate, stepS int64
	if err := p.sqlFile.QueryRow(name).Scan(&lastUpdate, &stepS); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("LoadFile: no such file: %q", name)
		}
		return nil, err
	}

	f := rrd.NewFile(time.Unix(lastUpdate, 0), time.Duration(stepS)*time.Second)

	rows, err := p.sqlDs.Query(name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var dsName string
		if err := rows.Scan(&dsName); err != nil {
			return nil, err
		}
		f.AddDataSource(dsName)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(f.DataSources()) == 0 {
		return nil, fmt.Errorf("LoadFile: %q: no data sources", name)
	}

	rraRows, err := p.sqlRra.Query(name)
	if err != nil {
		return nil, err
	}
	defer rraRows.Close()
	for rraRows.Next() {
		var (
			pos, size int
			cf        string
			rraStepS  int64
		)
		if err := rraRows.Scan(&pos, &cf, &rraStepS, &size); err != nil {
			return nil, err
		}
		rra := f.AddArchive(cf, time.Duration(rraStepS)*time.Second, size)
		if err := p.loadCells(name, pos, rra); err != nil {
			return nil, err
		}
	}
	if err := rraRows.Err(); err != nil {
		return nil, err
	}

	return f, nil
}

func (p *PgArchives) loadCells(name string, rraPos int, rra *rrd.Archive) error {
	rows, err := p.sqlTs.Query(name, rraPos)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			dsPos int
			dps   pq.Float64Array
		)
		if err := rows.Scan(&dsPos, &dps); err != nil {
			return err
		}
		for row, v := range dps {
			rra.SetValue(row, dsPos, v)
		}
	}
	return rows.Err()
}
