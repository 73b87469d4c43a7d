package http

import (
	"errors"
	"net/http"

	"griefpulse/internal/charts"
	apierrors "griefpulse/internal/errors"
	"griefpulse/internal/grievance"
	"griefpulse/internal/loader"
	"griefpulse/internal/services"
)

// toAPIError maps service and domain errors onto problem-ready API errors.
// Unknown errors pass through and become 500s.
func toAPIError(err error, datasetID string) error {
	var (
		apiErr  *apierrors.APIError
		missing *grievance.MissingColumnsError
		loadErr *loader.LoadError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &missing):
		return apierrors.DatasetMissingColumns(missing, missing.Missing)
	case errors.Is(err, services.ErrLoadFailed):
		if errors.As(err, &loadErr) {
			return apierrors.DatasetLoadFailed(loadErr)
		}
		return apierrors.DatasetLoadFailed(err)
	case errors.Is(err, services.ErrEmptySelection):
		return apierrors.DatasetEmptySelection(err)
	case errors.Is(err, services.ErrDatasetNotFound):
		return apierrors.DatasetNotFound(datasetID)
	case errors.Is(err, services.ErrNoSource):
		return apierrors.Wrap(err, http.StatusNotFound, apierrors.CodeDatasetNotFound, err.Error())
	case errors.Is(err, services.ErrUnknownChart):
		return apierrors.NotFoundError("chart")
	case errors.Is(err, services.ErrChartUnavailable), errors.Is(err, charts.ErrNoData):
		return apierrors.Wrap(err, http.StatusUnprocessableEntity, apierrors.CodeChartNoData, err.Error())
	}
	return err
}

// userMessage is the text shown on the HTML page for err
func userMessage(err error) string {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "Une erreur inattendue est survenue."
}

func statusOf(err error) int {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return http.StatusInternalServerError
}
