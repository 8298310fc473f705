package storage

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/bgfactura/invoicing/internal/errors"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, Translate(nil, "Client", ""))

	err := Translate(fmt.Errorf("get: %w", ErrNotFound), "Client", "")
	assert.Equal(t, http.StatusNotFound, apperrors.HTTPStatus(err))
	assert.Equal(t, "Client not found", err.Error())

	err = Translate(ErrConflict, "Product", "")
	assert.Equal(t, "Product already exists", err.Error())
	err = Translate(ErrConflict, "User", "User with this email already exists")
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))
	assert.Equal(t, "User with this email already exists", err.Error())

	err = Translate(errors.New("connection reset"), "Client", "")
	assert.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(err))

	se := apperrors.Validation("bad")
	assert.Same(t, se, Translate(se, "Client", ""))
}

func TestListOptionsNormalize(t *testing.T) {
	opts := ListOptions{Page: 0, Limit: 0}.Normalize()
	assert.Equal(t, 1, opts.Page)
	assert.Equal(t, DefaultPageSize, opts.Limit)

	opts = ListOptions{Page: 3, Limit: 500}.Normalize()
	assert.Equal(t, MaxPageSize, opts.Limit)
	assert.Equal(t, 200, opts.Offset())
	assert.Equal(t, 3, ListOptions{Limit: 10}.TotalPages(21))
	assert.Equal(t, 0, ListOptions{Limit: 10}.TotalPages(0))
}
