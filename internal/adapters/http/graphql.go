package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lon": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lon": &graphql.Field{Type: graphql.Float},
		},
	})

	datasetType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Dataset",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"slug":        &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"point_count": &graphql.Field{Type: graphql.Int},
			"extent":      &graphql.Field{Type: boundsType},
		},
	})

	resolutionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Resolution",
		Fields: graphql.Fields{
			"cell_width":  &graphql.Field{Type: graphql.Float},
			"cell_height": &graphql.Field{Type: graphql.Float},
		},
	})

	jobType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Job",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"dataset_id": &graphql.Field{Type: graphql.String},
			"min_points": &graphql.Field{Type: graphql.Int},
			"tolerance":  &graphql.Field{Type: graphql.Int},
			"status":     &graphql.Field{Type: graphql.String},
			"error":      &graphql.Field{Type: graphql.String},
		},
	})

	resultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Result",
		Fields: graphql.Fields{
			"resolution": &graphql.Field{Type: resolutionType},
			"discarded":  &graphql.Field{Type: graphql.NewList(graphql.String)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"datasets": &graphql.Field{
				Type:        graphql.NewList(datasetType),
				Description: "List all datasets",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Datasets.List(p.Context)
				},
			},
			"dataset": &graphql.Field{
				Type:        datasetType,
				Description: "Get a dataset by slug",
				Args: graphql.FieldConfigArgument{
					"slug": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					slug := p.Args["slug"].(string)
					return deps.Datasets.GetBySlug(p.Context, slug)
				},
			},
			"jobs": &graphql.Field{
				Type:        graphql.NewList(jobType),
				Description: "List anonymisation jobs for a dataset",
				Args: graphql.FieldConfigArgument{
					"dataset_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					datasetID := p.Args["dataset_id"].(string)
					return deps.Anonymise.ListJobs(p.Context, datasetID)
				},
			},
			"job": &graphql.Field{
				Type:        jobType,
				Description: "Get a job by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Anonymise.GetJob(p.Context, id)
				},
			},
			"result": &graphql.Field{
				Type:        resultType,
				Description: "Get the grid result of a completed job",
				Args: graphql.FieldConfigArgument{
					"job_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					jobID := p.Args["job_id"].(string)
					return deps.Results.GetByJob(p.Context, jobID)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
