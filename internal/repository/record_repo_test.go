package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFilter_WhereClause(t *testing.T) {
	cases := []struct {
		name     string
		filter   RecordFilter
		want     string
		wantArgs []interface{}
	}{
		{
			name:     "no filter",
			filter:   RecordFilter{},
			want:     "",
			wantArgs: []interface{}{},
		},
		{
			name:     "date only",
			filter:   RecordFilter{Date: "2024-05-01"},
			want:     "WHERE vl.verification_time::date = $1",
			wantArgs: []interface{}{"2024-05-01"},
		},
		{
			name:     "company only",
			filter:   RecordFilter{CompanyID: 3},
			want:     "WHERE c.company_id = $1",
			wantArgs: []interface{}{3},
		},
		{
			name:     "date and company",
			filter:   RecordFilter{Date: "2024-05-01", CompanyID: 3},
			want:     "WHERE vl.verification_time::date = $1 AND c.company_id = $2",
			wantArgs: []interface{}{"2024-05-01", 3},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			where, args := tc.filter.whereClause()
			assert.Equal(t, tc.want, where)
			assert.Equal(t, tc.wantArgs, args)
		})
	}
}

func TestRecordRepo_ListFilteredPage(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewRecordRepo(conn)
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("ORDER BY vl.verification_time DESC").
		WithArgs("2024-05-01", 3, 20, 40).
		WillReturnRows(sqlmock.NewRows([]string{"verification_time", "code", "name", "user_phone", "ip_address"}).
			AddRow(at, "ABCD1234", "腾讯科技", "13800138000", "10.0.0.1").
			AddRow(at, "WXYZ5678", "腾讯科技", "13800138000", nil))

	records, err := repo.List(context.Background(), RecordFilter{Date: "2024-05-01", CompanyID: 3}, 20, 40)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ABCD1234", records[0].Code)
	assert.Equal(t, "10.0.0.1", records[0].IPAddress)
	// NULL ip comes back as the empty string
	assert.Equal(t, "", records[1].IPAddress)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepo_CountUsesSameFilter(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewRecordRepo(conn)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	total, err := repo.Count(context.Background(), RecordFilter{CompanyID: 3})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
