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
	"context"

	"github.com/bookrec/bookrec/base/log"
	"github.com/bookrec/bookrec/config"
	"github.com/bookrec/bookrec/logics"
	"github.com/bookrec/bookrec/model/cf"
	"github.com/bookrec/bookrec/storage/data"
	"github.com/emicklei/go-restful/v3"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Server serves recommendations over HTTP.
type Server struct {
	RestServer
	dataClient data.Database
}

// NewServer connects to the data store and loads the latent factor model.
func NewServer(cfg *config.Config) (*Server, error) {
	recommender, dataClient, err := OpenRecommender(cfg)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Server{
		RestServer: RestServer{
			Config:      cfg,
			Recommender: recommender,
			WebService:  new(restful.WebService),
		},
		dataClient: dataClient,
	}, nil
}

// Serve blocks until the HTTP server is shut down.
func (s *Server) Serve() {
	s.StartHttpServer(restful.NewContainer())
}

// Shutdown stops the HTTP server and releases the data store.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.HttpServer != nil {
		if err := s.HttpServer.Shutdown(ctx); err != nil {
			return errors.Trace(err)
		}
	}
	s.Recommender.Close()
	return errors.Trace(s.dataClient.Close())
}

// OpenRecommender creates a recommender from the configuration. The caller owns
// the returned database.
func OpenRecommender(cfg *config.Config) (*logics.Recommender, data.Database, error) {
	dataClient, err := data.Open(cfg.Database.DataStore, cfg.Database.TablePrefix)
	if err != nil {
		return nil, nil, errors.Annotatef(err, "failed to connect %s", log.RedactDBURL(cfg.Database.DataStore))
	}
	if cfg.Server.AutoMigrate {
		if err = dataClient.Init(); err != nil {
			_ = dataClient.Close()
			return nil, nil, errors.Annotate(err, "failed to init database")
		}
	}
	log.Logger().Info("connect data store", zap.String("data_store", log.RedactDBURL(cfg.Database.DataStore)))
	predictor, err := LoadPredictor(cfg.Recommend.Collaborative)
	if err != nil {
		_ = dataClient.Close()
		return nil, nil, errors.Trace(err)
	}
	recommender, err := logics.NewRecommender(cfg.Recommend, dataClient, predictor)
	if err != nil {
		_ = dataClient.Close()
		return nil, nil, errors.Trace(err)
	}
	return recommender, dataClient, nil
}

// LoadPredictor loads the latent factor model. It returns nil if no model is
// configured, in which case item means are used.
func LoadPredictor(cfg config.CollaborativeConfig) (cf.Predictor, error) {
	if cfg.ModelPath == "" {
		log.Logger().Warn("no latent factor model configured, fall back to item means")
		return nil, nil
	}
	mf, err := cf.Load(cfg.ModelPath)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to load model %s", cfg.ModelPath)
	}
	mf.Clip = cfg.Clip
	log.Logger().Info("load latent factor model",
		zap.String("model_path", cfg.ModelPath),
		zap.Int("n_users", mf.NumUsers()),
		zap.Int("n_items", mf.NumItems()),
		zap.Int("n_factors", mf.NumFactors()))
	return mf, nil
}
