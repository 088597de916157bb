package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dementor/internal/model"
)

func TestPomParse(t *testing.T) {
	input := `<?xml version="1.0"?>
<project>
  <groupId>com.example</groupId>
  <artifactId>app</artifactId>
  <version>1.0.0</version>
  <properties>
    <spring.version>5.3.9</spring.version>
  </properties>
  <dependencyManagement>
    <dependencies>
      <dependency>
        <groupId>com.fasterxml.jackson.core</groupId>
        <artifactId>jackson-databind</artifactId>
        <version>2.13.0</version>
      </dependency>
    </dependencies>
  </dependencyManagement>
  <dependencies>
    <dependency>
      <groupId>org.springframework</groupId>
      <artifactId>spring-core</artifactId>
      <version>${spring.version}</version>
    </dependency>
    <dependency>
      <groupId>com.fasterxml.jackson.core</groupId>
      <artifactId>jackson-databind</artifactId>
    </dependency>
    <dependency>
      <groupId>com.example</groupId>
      <artifactId>sibling</artifactId>
      <version>${project.version}</version>
    </dependency>
    <dependency>
      <groupId>junit</groupId>
      <artifactId>junit</artifactId>
      <version>4.13.2</version>
    </dependency>
  </dependencies>
</project>`
	p := &PomParser{}
	deps, warns, err := p.Parse("pom.xml", []byte(input))
	require.NoError(t, err)
	assert.Empty(t, warns)
	require.Len(t, deps, 4)

	spring := depByName(deps, "org.springframework:spring-core")
	require.NotNil(t, spring)
	assert.Equal(t, model.EcosystemMaven, spring.Ecosystem)
	assert.Equal(t, "5.3.9", spring.ResolvedVersion, "property interpolation")

	jackson := depByName(deps, "com.fasterxml.jackson.core:jackson-databind")
	require.NotNil(t, jackson)
	assert.Equal(t, "2.13.0", jackson.ResolvedVersion, "dependencyManagement supplies the version")

	sibling := depByName(deps, "com.example:sibling")
	require.NotNil(t, sibling)
	assert.Equal(t, "1.0.0", sibling.ResolvedVersion, "project.version interpolation")
}

func TestPomUnknownPropertyWarns(t *testing.T) {
	input := `<project>
  <dependencies>
    <dependency>
      <groupId>org.example</groupId>
      <artifactId>thing</artifactId>
      <version>${undefined.prop}</version>
    </dependency>
  </dependencies>
</project>`
	p := &PomParser{}
	deps, warns, err := p.Parse("pom.xml", []byte(input))
	require.NoError(t, err)
	require.Len(t, warns, 1)
	require.Len(t, deps, 1, "dependency is kept as unresolved")
	assert.True(t, deps[0].Unresolved())
}

func TestPomMalformed(t *testing.T) {
	p := &PomParser{}
	_, _, err := p.Parse("pom.xml", []byte("<project><dependencies>"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestGradleParse(t *testing.T) {
	input := `plugins { id 'java' }

dependencies {
    implementation 'org.springframework:spring-core:5.3.9'
    testImplementation("junit:junit:4.13.2")
    api 'com.example:lib:${libVersion}'
    runtimeOnly 'org.postgresql:postgresql:42.7.1'
    // implementation 'commented:out:1.0.0'
}
`
	p := &GradleParser{}
	deps, warns, err := p.Parse("build.gradle", []byte(input))
	require.NoError(t, err)
	require.Len(t, deps, 3)
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0].Message, "com.example:lib")

	spring := depByName(deps, "org.springframework:spring-core")
	require.NotNil(t, spring)
	assert.Equal(t, "5.3.9", spring.ResolvedVersion)
	assert.True(t, spring.Pinned)

	junit := depByName(deps, "junit:junit")
	require.NotNil(t, junit)
	assert.Equal(t, "4.13.2", junit.ResolvedVersion)
}

func TestGradleRecognizesKotlinDSL(t *testing.T) {
	p := &GradleParser{}
	assert.True(t, p.Recognizes("service/build.gradle.kts"))
	assert.False(t, p.Recognizes("settings.gradle"))
}

func TestForFilePrefersLockfile(t *testing.T) {
	all := All()
	assert.Equal(t, "package-lock.json", ForFile(all, "x/package-lock.json").Name())
	assert.Equal(t, "package.json", ForFile(all, "x/package.json").Name())
	assert.Nil(t, ForFile(all, "x/Gemfile"))
}
