package platform

const (
	vercelMarkerKey  = "VERCEL"
	vercelEnvKey     = "VERCEL_ENV"
	vercelRegionKey  = "VERCEL_REGION"
	vercelURLKey     = "VERCEL_URL"
	vercelCommitKey  = "VERCEL_GIT_COMMIT_SHA"
	vercelDeployKey  = "VERCEL_DEPLOYMENT_ID"
	netlifyMarkerKey = "NETLIFY"
	netlifySiteKey   = "SITE_ID"
	netlifyBuildKey  = "BUILD_ID"
	netlifyCtxKey    = "CONTEXT"
	netlifyURLKey    = "DEPLOY_URL"
	netlifyDeployKey = "DEPLOY_ID"
	netlifyRegionKey = "AWS_REGION"
	netlifyCommitKey = "COMMIT_REF"

	lambdaFunctionNameKey = "AWS_LAMBDA_FUNCTION_NAME"
	lambdaVersionKey      = "AWS_LAMBDA_FUNCTION_VERSION"
	lambdaMemoryKey       = "AWS_LAMBDA_FUNCTION_MEMORY_SIZE"
	lambdaRegionKey       = "AWS_REGION"
	lambdaExecEnvKey      = "AWS_EXECUTION_ENV"
)

// Vercel reports metadata from the Vercel system environment variables.
type Vercel struct {
	env Env
}

// NewVercel snapshots the Vercel environment variables.
func NewVercel(lookup LookupFunc) *Vercel {
	return &Vercel{env: lookupEnv(lookup, map[string]bool{
		vercelMarkerKey: true,
		vercelEnvKey:    true,
		vercelRegionKey: true,
		vercelURLKey:    true,
		vercelCommitKey: true,
		vercelDeployKey: true,
	})}
}

func (v *Vercel) Name() string { return "vercel" }

func (v *Vercel) Metadata(source string) *Info {
	if v == nil {
		return nil
	}
	if _, ok := v.env[vercelMarkerKey]; !ok {
		return nil
	}
	return &Info{
		Provider:      v.Name(),
		Source:        source,
		Environment:   v.env[vercelEnvKey],
		Region:        v.env[vercelRegionKey],
		Host:          v.env[vercelURLKey],
		DeploymentURL: v.env[vercelURLKey],
		DeploymentID:  v.env[vercelDeployKey],
		Commit:        v.env[vercelCommitKey],
	}
}

// Netlify reports metadata from the Netlify build/runtime variables.
type Netlify struct {
	env Env
}

// NewNetlify snapshots the Netlify environment variables.
func NewNetlify(lookup LookupFunc) *Netlify {
	return &Netlify{env: lookupEnv(lookup, map[string]bool{
		netlifyMarkerKey: true,
		netlifySiteKey:   true,
		netlifyBuildKey:  true,
		netlifyCtxKey:    true,
		netlifyURLKey:    true,
		netlifyDeployKey: true,
		netlifyRegionKey: true,
		netlifyCommitKey: true,
	})}
}

func (n *Netlify) Name() string { return "netlify" }

func (n *Netlify) Metadata(source string) *Info {
	if n == nil {
		return nil
	}
	if _, ok := n.env[netlifyMarkerKey]; !ok {
		return nil
	}
	return &Info{
		Provider:      n.Name(),
		Source:        source,
		Environment:   n.env[netlifyCtxKey],
		Region:        n.env[netlifyRegionKey],
		Host:          n.env[netlifySiteKey],
		DeploymentURL: n.env[netlifyURLKey],
		DeploymentID:  n.env[netlifyDeployKey],
		Commit:        n.env[netlifyCommitKey],
	}
}

// Lambda reports metadata from the reserved AWS Lambda environment variables.
type Lambda struct {
	env Env
}

// NewLambda snapshots the reserved Lambda environment variables.
func NewLambda(lookup LookupFunc) *Lambda {
	return &Lambda{env: lookupEnv(lookup, map[string]bool{
		lambdaFunctionNameKey: true,
		lambdaVersionKey:      true,
		lambdaMemoryKey:       true,
		lambdaRegionKey:       true,
		lambdaExecEnvKey:      true,
	})}
}

func (l *Lambda) Name() string { return "lambda" }

func (l *Lambda) Metadata(source string) *Info {
	if l == nil {
		return nil
	}
	name, ok := l.env[lambdaFunctionNameKey]
	if !ok {
		return nil
	}
	return &Info{
		Provider:        l.Name(),
		Source:          source,
		Environment:     l.env[lambdaExecEnvKey],
		Region:          l.env[lambdaRegionKey],
		FunctionName:    name,
		FunctionVersion: l.env[lambdaVersionKey],
		MemoryMB:        l.env[lambdaMemoryKey],
	}
}
