package config

// Default values applied when a field is left unset in config.toml
const (
	DefaultOllamaHost        = "http://localhost:11434"
	DefaultOllamaModel       = "qwen2.5:14b"
	DefaultTimeoutSeconds    = 300
	DefaultTemperature       = 0.3
	DefaultTopP              = 0.9
	DefaultNumPredict        = 4096
	DefaultBaseRetryDelayMs  = 1000
	DefaultBatchSize         = 50
	DefaultSentencesPerWord  = 3
	DefaultMaxRetries        = 3
	DefaultRankMin           = 1
	DefaultRankMax           = 5000
	DefaultBatchDelayMs      = 500
	DefaultCheckpointDir     = "checkpoints"
	DefaultMaxKeptSentences  = 2
	DefaultMinSentenceLength = 10
	DefaultDatabasePath      = "data/vocabulary.db"
	DefaultListenAddr        = ":8000"
	DefaultShutdownTimeout   = 10
	DefaultLogLevel          = "info"
	DefaultLogDir            = "logs"
	DefaultScheduleSpec      = "0 3 * * *"
)

// DefaultThemes returns the built-in professional themes
func DefaultThemes() map[string]ThemeConfig {
	return map[string]ThemeConfig{
		"qa_manager": {
			DisplayName: "IT QA Manager",
			Emoji:       "🔍",
			Description: "Quality Assurance Manager in a software company",
			Context: `You are generating example sentences for an IT Quality Assurance Manager.
The sentences should relate to:
- Software testing (manual and automated)
- Test case management and test plans
- Bug tracking and defect reports
- Sprint planning and agile ceremonies
- QA team leadership and coordination
- Regression testing and release validation
- Performance and load testing
- Test automation frameworks (Selenium, Cypress, Jest)
- CI/CD pipeline testing
- Quality metrics and reporting`,
			Examples: []string{
				"The regression suite detected three critical defects.",
				"We need to update the test cases for the new feature.",
				"The QA team completed the smoke tests successfully.",
			},
		},
		"software_dev": {
			DisplayName: "Software Development",
			Emoji:       "💻",
			Description: "Software Developer or Engineer",
			Context: `You are generating example sentences for a Software Developer.
The sentences should relate to:
- Programming and coding practices
- Code reviews and pull requests
- Software architecture and design patterns
- API development and integration
- Database operations and queries
- Version control (Git, branches, commits)
- Debugging and troubleshooting
- Documentation and technical writing
- IDE and development tools
- Clean code principles`,
			Examples: []string{
				"The function returns an array of validated objects.",
				"We should refactor this method to improve readability.",
				"The API endpoint handles authentication properly.",
			},
		},
		"agile_scrum": {
			DisplayName: "Agile & Scrum",
			Emoji:       "📋",
			Description: "Agile/Scrum Team Member or Scrum Master",
			Context: `You are generating example sentences for an Agile/Scrum practitioner.
The sentences should relate to:
- Scrum ceremonies (daily standup, sprint planning, retrospective)
- User stories and acceptance criteria
- Sprint backlog and product backlog
- Story points and velocity
- Kanban boards and task management
- Continuous improvement
- Stakeholder communication
- Agile principles and values
- Cross-functional team collaboration
- Release planning and roadmaps`,
			Examples: []string{
				"The team completed five story points this sprint.",
				"We discussed blockers during the daily standup.",
				"The retrospective revealed areas for improvement.",
			},
		},
		"devops": {
			DisplayName: "DevOps & CI/CD",
			Emoji:       "🚀",
			Description: "DevOps Engineer or SRE",
			Context: `You are generating example sentences for a DevOps Engineer.
The sentences should relate to:
- CI/CD pipelines and automation
- Container orchestration (Docker, Kubernetes)
- Infrastructure as Code (Terraform, Ansible)
- Cloud platforms (AWS, Azure, GCP)
- Monitoring and alerting
- Log management and analysis
- Security and compliance
- Deployment strategies (blue-green, canary)
- Configuration management
- Site reliability and uptime`,
			Examples: []string{
				"The pipeline automatically deploys to staging.",
				"We configured the Kubernetes cluster for high availability.",
				"The monitoring dashboard shows increased latency.",
			},
		},
		"general_business": {
			DisplayName: "General Business",
			Emoji:       "💼",
			Description: "Professional Business Communication",
			Context: `You are generating example sentences for general business communication.
The sentences should relate to:
- Professional email communication
- Meeting management and presentations
- Project management and timelines
- Team collaboration and coordination
- Client and stakeholder relations
- Reports and documentation
- Strategic planning
- Performance reviews
- Budget and resource allocation
- Professional development`,
			Examples: []string{
				"Please review the document before the meeting.",
				"The project deadline has been extended by one week.",
				"We need to schedule a follow-up call with the client.",
			},
		},
	}
}
