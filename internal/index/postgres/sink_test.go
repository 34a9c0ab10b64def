package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/spindle/internal/crawler"
)

func expectSchema(mock pgxmock.PgxPoolIface, table string) {
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS " + table).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS " + table + "_search_idx").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
}

func TestNewWithPoolTruncatesWhenRebuilding(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectSchema(mock, "documents")
	mock.ExpectExec("TRUNCATE TABLE documents").
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))

	_, err = NewWithPool(context.Background(), mock, "", false, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddDocumentUpsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	expectSchema(mock, "pages")
	s, err := NewWithPool(context.Background(), mock, "pages", true, nil)
	require.NoError(t, err)

	doc := crawler.Document{
		URL:         "http://h/manual.html#x",
		Title:       "Manual",
		Description: "section x",
		Body:        "<a name='x'>section x</a>",
		Text:        "section x",
	}
	mock.ExpectExec("INSERT INTO pages").
		WithArgs(doc.URL, doc.Title, doc.Description, doc.Text, len(doc.Body)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("ANALYZE pages").
		WillReturnResult(pgxmock.NewResult("ANALYZE", 0))
	mock.ExpectClose()

	require.NoError(t, s.AddDocument(context.Background(), doc))
	require.NoError(t, s.Close(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddDocumentStoresTextNotMarkup(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectSchema(mock, "documents")
	s, err := NewWithPool(context.Background(), mock, "documents", true, nil)
	require.NoError(t, err)

	doc := crawler.Document{
		URL:   "http://h/manual.html#empty",
		Title: "Manual",
		Body:  `<a name="empty" class="sidebar"></a>`,
	}
	mock.ExpectExec("INSERT INTO documents").
		WithArgs(doc.URL, doc.Title, "", "", len(doc.Body)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.AddDocument(context.Background(), doc))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddDocumentWrapsErrors(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectSchema(mock, "documents")
	s, err := NewWithPool(context.Background(), mock, "documents", true, nil)
	require.NoError(t, err)

	boom := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO documents").WillReturnError(boom)

	err = s.AddDocument(context.Background(), crawler.Document{URL: "http://h/"})
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "http://h/")
}

func TestNewWithPoolRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(context.Background(), nil, "documents", true, nil)
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewWithPool(context.Background(), mock, "bad-name;", true, nil)
	require.ErrorContains(t, err, "invalid table name")

	_, err = New(context.Background(), Config{}, nil)
	require.ErrorContains(t, err, "DSN is required")
}
