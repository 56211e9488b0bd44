// Copyright 2026 bookrec Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bookrec/bookrec/base/log"
	"github.com/bookrec/bookrec/config"
	"github.com/bookrec/bookrec/logics"
	"github.com/bookrec/bookrec/storage/data"
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"github.com/swaggest/swgui/v5emb"
	"go.uber.org/zap"
)

const (
	apiDocsPath = "/apidocs/"
	apiSpecPath = "/apidocs.json"
)

// RestServer implements a REST-ful API server.
type RestServer struct {
	Config      *config.Config
	Recommender *logics.Recommender
	WebService  *restful.WebService
	HttpServer  *http.Server
}

// StartHttpServer starts the REST-ful API server.
func (s *RestServer) StartHttpServer(container *restful.Container) {
	s.RegisterHandlers(container)
	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)
	s.HttpServer = &http.Server{
		Addr:    addr,
		Handler: container,
	}
	log.Logger().Info("start http server", zap.String("url", "http://"+addr))
	if err := s.HttpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Logger().Fatal("failed to start http server", zap.Error(err))
	}
}

// RegisterHandlers adds the REST-ful APIs, the API docs and the metrics endpoint to a container.
func (s *RestServer) RegisterHandlers(container *restful.Container) {
	// register restful APIs
	s.CreateWebService()
	container.Add(s.WebService)
	// register swagger UI
	specConfig := restfulspec.Config{
		WebServices: []*restful.WebService{s.WebService},
		APIPath:     apiSpecPath,
	}
	container.Add(restfulspec.NewOpenAPIService(specConfig))
	container.Handle(apiDocsPath, v5emb.New("bookrec", apiSpecPath, apiDocsPath))
	// register prometheus
	container.Handle("/metrics", promhttp.Handler())
}

// LogFilter assigns a request id, then logs and measures every request.
func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	requestId := req.HeaderParameter(log.RequestIdHeader)
	if requestId == "" {
		requestId = uuid.New().String()
	}
	resp.Header().Set(log.RequestIdHeader, requestId)

	start := time.Now()
	chain.ProcessFilter(req, resp)
	elapsed := time.Since(start)
	RestAPIRequestSecondsVec.WithLabelValues(fmt.Sprintf("%s %s", req.Request.Method, req.SelectedRoutePath())).
		Observe(elapsed.Seconds())
	log.ResponseLogger(resp).Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
		zap.Int("status_code", resp.StatusCode()),
		zap.Duration("elapsed", elapsed))
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	// Create a server
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/")
	ws.Filter(LogFilter)

	ws.Route(ws.GET("/").To(s.hello).
		Doc("Check that the service is up.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Writes(Message{}))

	/* Recommendations */

	// Get trending books
	ws.Route(ws.GET("/api/trending-books").To(s.getTrending).
		Doc("Get books ranked by average rating weighted by the logarithm of the review count.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.QueryParameter("top", "number of returned books").DataType("integer").DefaultValue("10")).
		Returns(http.StatusOK, "OK", []TrendingBook{}).
		Writes([]TrendingBook{}))
	// Get collaborative filtering recommendations
	ws.Route(ws.GET("/api/cf-recommendations").To(s.getCollaborative).
		Doc("Get unrated books for a user ranked by predicted rating.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.QueryParameter("user_id", "identifier of the user").DataType("integer").Required(true)).
		Param(ws.QueryParameter("n", "number of returned books").DataType("integer").DefaultValue("5")).
		Returns(http.StatusOK, "OK", []RatedBook{}).
		Writes([]RatedBook{}))
	// Get content based recommendations
	ws.Route(ws.GET("/api/cbf-recommendations").To(s.getContentBased).
		Doc("Get books with the most similar tags to a book.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.QueryParameter("product_id", "identifier of the reference book").DataType("integer").Required(true)).
		Param(ws.QueryParameter("n", "number of returned books").DataType("integer").DefaultValue("5")).
		Returns(http.StatusOK, "OK", []SimilarBook{}).
		Writes([]SimilarBook{}))
	// Get hybrid recommendations
	ws.Route(ws.GET("/api/hybrid-recommendations").To(s.getHybrid).
		Doc("Get books ranked by the weighted sum of normalized predicted rating and similarity.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.QueryParameter("user_id", "identifier of the user").DataType("integer").Required(true)).
		Param(ws.QueryParameter("product_id", "identifier of the reference book").DataType("integer").Required(true)).
		Param(ws.QueryParameter("n", "number of returned books").DataType("integer").DefaultValue("5")).
		Param(ws.QueryParameter("cf_weight", "weight of collaborative filtering").DataType("number").DefaultValue("0.5")).
		Param(ws.QueryParameter("cbf_weight", "weight of content based filtering").DataType("number").DefaultValue("0.5")).
		Returns(http.StatusOK, "OK", []HybridBook{}).
		Writes([]HybridBook{}))
}

type Message struct {
	Message string `json:"message"`
}

type TrendingBook struct {
	data.Item
	TrendingScore float64 `json:"trending_score"`
}

type RatedBook struct {
	data.Item
	PredictedRating float64 `json:"predicted_rating"`
}

type SimilarBook struct {
	data.Item
	SimilarityScore float64 `json:"similarity_score"`
}

type HybridBook struct {
	data.Item
	NormalizedRating float64 `json:"normalized_rating"`
	SimilarityScore  float64 `json:"similarity_score"`
	HybridScore      float64 `json:"hybrid_score"`
}

// ParseInt parses integers from the query parameter.
func ParseInt(request *restful.Request, name string, fallback int) (value int, err error) {
	valueString := request.QueryParameter(name)
	value, err = strconv.Atoi(valueString)
	if err != nil && valueString == "" {
		value = fallback
		err = nil
	}
	return
}

// ParseFloat parses floats from the query parameter.
func ParseFloat(request *restful.Request, name string, fallback float64) (value float64, err error) {
	valueString := request.QueryParameter(name)
	value, err = strconv.ParseFloat(valueString, 64)
	if err != nil && valueString == "" {
		value = fallback
		err = nil
	}
	return
}

// ParseId parses a required 64-bit identifier from the query parameter.
func ParseId(request *restful.Request, name string) (int64, error) {
	valueString := request.QueryParameter(name)
	if valueString == "" {
		return 0, errors.NotValidf("missing %s", name)
	}
	value, err := strconv.ParseInt(valueString, 10, 64)
	if err != nil {
		return 0, errors.NewNotValid(err, fmt.Sprintf("invalid %s", name))
	}
	return value, nil
}

func (s *RestServer) hello(_ *restful.Request, response *restful.Response) {
	Ok(response, Message{Message: "Hello from bookrec!"})
}

func (s *RestServer) getTrending(request *restful.Request, response *restful.Response) {
	top, err := ParseInt(request, "top", s.Config.Server.DefaultTop)
	if err != nil {
		BadRequest(response, err)
		return
	}
	start := time.Now()
	books, err := s.Recommender.Trending(request.Request.Context(), top)
	if err != nil {
		Error(response, err)
		return
	}
	RecommendSecondsVec.WithLabelValues("trending").Observe(time.Since(start).Seconds())
	Ok(response, lo.Map(books, func(book logics.TrendingBook, _ int) TrendingBook {
		return TrendingBook{Item: book.Item, TrendingScore: book.Score}
	}))
}

func (s *RestServer) getCollaborative(request *restful.Request, response *restful.Response) {
	userId, err := ParseId(request, "user_id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	n, err := ParseInt(request, "n", s.Config.Server.DefaultN)
	if err != nil {
		BadRequest(response, err)
		return
	}
	start := time.Now()
	books, err := s.Recommender.Collaborative(request.Request.Context(), userId, n)
	if err != nil {
		Error(response, err)
		return
	}
	RecommendSecondsVec.WithLabelValues("collaborative").Observe(time.Since(start).Seconds())
	Ok(response, lo.Map(books, func(book logics.RatedBook, _ int) RatedBook {
		return RatedBook{Item: book.Item, PredictedRating: book.PredictedRating}
	}))
}

func (s *RestServer) getContentBased(request *restful.Request, response *restful.Response) {
	productId, err := ParseId(request, "product_id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	n, err := ParseInt(request, "n", s.Config.Server.DefaultN)
	if err != nil {
		BadRequest(response, err)
		return
	}
	start := time.Now()
	books, err := s.Recommender.ContentBased(request.Request.Context(), productId, n)
	if err != nil {
		Error(response, err)
		return
	}
	RecommendSecondsVec.WithLabelValues("content").Observe(time.Since(start).Seconds())
	Ok(response, lo.Map(books, func(book logics.SimilarBook, _ int) SimilarBook {
		return SimilarBook{Item: book.Item, SimilarityScore: book.Similarity}
	}))
}

func (s *RestServer) getHybrid(request *restful.Request, response *restful.Response) {
	userId, err := ParseId(request, "user_id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	productId, err := ParseId(request, "product_id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	n, err := ParseInt(request, "n", s.Config.Server.DefaultN)
	if err != nil {
		BadRequest(response, err)
		return
	}
	cfWeight, err := ParseFloat(request, "cf_weight", s.Config.Recommend.Hybrid.CFWeight)
	if err != nil {
		BadRequest(response, err)
		return
	}
	cbfWeight, err := ParseFloat(request, "cbf_weight", s.Config.Recommend.Hybrid.CBFWeight)
	if err != nil {
		BadRequest(response, err)
		return
	}
	start := time.Now()
	books, err := s.Recommender.Hybrid(request.Request.Context(), userId, productId, n, cfWeight, cbfWeight)
	if err != nil {
		Error(response, err)
		return
	}
	RecommendSecondsVec.WithLabelValues("hybrid").Observe(time.Since(start).Seconds())
	Ok(response, lo.Map(books, func(book logics.HybridBook, _ int) HybridBook {
		return HybridBook{
			Item:             book.Item,
			NormalizedRating: book.NormalizedRating,
			SimilarityScore:  book.Similarity,
			HybridScore:      book.Score,
		}
	}))
}

// Error writes an error with the status of its kind.
func Error(response *restful.Response, err error) {
	switch {
	case errors.Is(err, logics.ErrItemNotFound), errors.Is(err, logics.ErrUnknownUser):
		PageNotFound(response, err)
	case errors.Is(err, logics.ErrEmptyDataset), errors.Is(err, logics.ErrMissingField), errors.Is(err, errors.NotValid):
		BadRequest(response, err)
	default:
		InternalServerError(response, err)
	}
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("bad request", zap.Error(err))
	if err = response.WriteError(http.StatusBadRequest, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// InternalServerError returns a internal server error.
func InternalServerError(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("internal server error", zap.Error(err))
	if err = response.WriteError(http.StatusInternalServerError, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// PageNotFound returns a not found error.
func PageNotFound(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteError(http.StatusNotFound, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content any) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteAsJson(content); err != nil {
		log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
	}
}
